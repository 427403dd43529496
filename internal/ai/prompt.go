package ai

import (
	"fmt"
	"strings"
)

// BuildSummaryPrompt builds the prompts for abstractive summarization
func BuildSummaryPrompt(transcript string) (string, string) {
	systemPrompt := `You summarize lecture recordings for students.
Use only information present in the transcript. Do not invent facts.
Write plain text: two to four sentences, no headings, no bullet points.`

	userPrompt := fmt.Sprintf("Summarize this transcript:\n\n%s", CleanTranscript(transcript))
	return systemPrompt, userPrompt
}

// BuildQuizPrompt builds the prompts for multiple-choice quiz generation
func BuildQuizPrompt(summary string, questions int) (string, string) {
	systemPrompt := `You write short multiple-choice quizzes for students.
Each question has options A) to D) on separate lines followed by "Answer: <letter>".
Use only information present in the summary.`

	userPrompt := fmt.Sprintf("Generate %d simple MCQs based on this summary:\n%s", questions, summary)
	return systemPrompt, userPrompt
}

// CleanTranscript collapses whitespace runs left by the recognizer
func CleanTranscript(transcript string) string {
	return strings.Join(strings.Fields(transcript), " ")
}
