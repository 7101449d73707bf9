// Package questionnaire holds the check-in form shown before the chat and
// turns its answers into the conversation's initial context.
package questionnaire

// Option is one selectable answer.
type Option struct {
	Icon  string
	Label string
}

// Question is one step of the check-in form. Key is the context field the
// answer is stored under.
type Question struct {
	Key     string
	Prompt  string
	Options []Option
	// Pills renders the options as text buttons instead of icons.
	Pills bool
}

var Questions = []Question{
	{
		Key:    "state",
		Prompt: "Quelle est la météo de votre relation aujourd'hui ?",
		Options: []Option{
			{"☀️", "Épanoui"},
			{"🌥", "Stable"},
			{"🌨", "Nuageux"},
			{"⚡️", "Tendu"},
			{"🌪", "Orageux"},
		},
	},
	{
		Key:    "mood",
		Prompt: "Comment vous sentez-vous en ce moment ?",
		Options: []Option{
			{"😊", "Heureux"},
			{"😢", "Triste"},
			{"😍", "Amoureux"},
			{"😡", "En colère"},
			{"🤔", "Pensif"},
		},
	},
	{
		Key:    "location",
		Prompt: "Où êtes-vous actuellement ?",
		Options: []Option{
			{"🏠", "Maison"},
			{"🏢", "Travail"},
			{"🌳", "Extérieur"},
			{"🏋️", "Sport"},
			{"🚇", "Transports"},
		},
	},
	{
		Key:    "topic",
		Prompt: "Sur quel aspect souhaitez-vous travailler ?",
		Pills:  true,
		Options: []Option{
			{"", "Communication"},
			{"", "Confiance"},
			{"", "Intimité"},
			{"", "Résolution des conflits"},
			{"", "Temps de qualité"},
			{"", "Projets d'avenir"},
		},
	},
}

func (q Question) has(label string) bool {
	for _, o := range q.Options {
		if o.Label == label {
			return true
		}
	}
	return false
}
