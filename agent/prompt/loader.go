package prompt

import (
	_ "embed"
	"strings"
)

var (
	//go:embed template/classifier.txt
	classifierRaw string

	//go:embed template/help.txt
	helpRaw string
)

// TasksPlaceholder marks where the task catalog is rendered in the classifier prompt.
const TasksPlaceholder = "%TASKS%"

// PromptSet holds loaded prompt content.
type PromptSet struct {
	Classifier string
	Help       string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Classifier: strings.TrimSpace(classifierRaw),
		Help:       strings.TrimSpace(helpRaw),
	}
}
