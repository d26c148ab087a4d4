package engine

// Choice is one inline keyboard option offered to the user.
// Data is the opaque payload echoed back in a SelectionEvent.
type Choice struct {
	Label string
	Data  string
}

// Action is an abstract outbound instruction for the messaging transport.
// The transport decides how each action is rendered.
type Action interface {
	isAction()
}

// Prompt sends a plain text message.
type Prompt struct {
	Text string
}

// PromptWithChoices sends a message with an inline keyboard.
type PromptWithChoices struct {
	Text    string
	Choices []Choice
}

// EditPrompt replaces the message the triggering selection originated from.
// Without a triggering selection the transport falls back to a new message.
type EditPrompt struct {
	Text    string
	Choices []Choice
}

// Ack is a short progress acknowledgment.
type Ack struct {
	Text string
}

func (Prompt) isAction()            {}
func (PromptWithChoices) isAction() {}
func (EditPrompt) isAction()        {}
func (Ack) isAction()               {}

// Event is one inbound user interaction.
type Event interface {
	isEvent()
}

// TextEvent is a plain text message from the user.
type TextEvent struct {
	Text string
}

// SelectionEvent is an inline keyboard selection (callback payload).
type SelectionEvent struct {
	Data string
}

func (TextEvent) isEvent()      {}
func (SelectionEvent) isEvent() {}
