package steps

func promptCompressContext(question string, rawContext string) (system string, user string) {
	system = "Extract relevant facts for the question."
	user = "Question: " + question + "\n\nContext:\n" + rawContext
	return system, user
}

func promptMergeSummary(currentSummary string, newLines string) (system string, user string) {
	system = "Update the summary with these new lines. Preserve key facts."
	user = "Current Summary:\n" + currentSummary + "\n\nNew Lines:\n" + newLines
	return system, user
}

func promptAnswer(summary string, history string, contextBlock string, question string) (system string, user string) {
	system = "You are a helpful AI assistant.\nUse the provided Long-Term Summary, Recent History, and Context."
	user = "Summary: " + summary + "\nHistory: " + history + "\nContext: " + contextBlock + "\nQuestion: " + question
	return system, user
}
