package conversation

import "github.com/set-night/carlog/internal/domain"

// Choice is one button offered with a prompt. Token is the callback
// data the transport sends back.
type Choice struct {
	Label string
	Token string
}

// Reply is what the engine wants shown to the user. Text is HTML.
type Reply struct {
	Text    string
	Choices []Choice

	// Done is set once the flow has ended, successfully or not.
	Done bool
}

// Input is one inbound event: either free text or a decoded button press.
type Input struct {
	Text   string
	Action *domain.Action
}

func TextInput(text string) Input { return Input{Text: text} }

func ActionInput(a domain.Action) Input { return Input{Action: &a} }

func cancelChoice() Choice {
	return Choice{Label: "✖️ Cancel", Token: domain.Action{Kind: domain.ActionCancel}.Token()}
}
