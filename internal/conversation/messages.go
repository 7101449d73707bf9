package conversation

// Copy shown to the user. The product ships in French.
const (
	Greeting = "Bonjour ! Je suis Coopleo, votre conseiller relationnel. Quel est votre nom ?"

	// ClosingPrompt is sent invisibly to let the assistant say goodbye.
	ClosingPrompt = "Please provide a final closing message to end the conversation politely."

	OptInYes = "Oui, envoyez-moi mes recommandations par e-mail"
	OptInNo  = "Non merci"

	ErrorReply             = "Désolé, j'ai rencontré une erreur. Veuillez réessayer dans un instant."
	MissingRecommendations = "Désolé, je n'ai pas pu trouver les recommandations finales. Pouvez-vous me demander de les fournir à nouveau ?"
	EmailSent              = "Merci d'avoir fourni votre adresse e-mail. Les recommandations finales ont été envoyées."
	EmailFailed            = "Désolé, il y a eu un problème lors de l'envoi de l'e-mail. Pouvez-vous réessayer plus tard ?"
	InvalidEmailNotice     = "Veuillez entrer une adresse e-mail valide"
)

// OptInOptions returns the two quick replies offered once final
// recommendations have been shown.
func OptInOptions() []string {
	return []string{OptInYes, OptInNo}
}
