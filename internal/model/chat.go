package model

// ChatMessage is one turn of the chat widget's history.
// From is "bot" for assistant turns; anything else is treated as the visitor.
type ChatMessage struct {
	From string `json:"from"`
	Text string `json:"text"`
}

// Project is a showcased repository the assistant can focus on.
type Project struct {
	Name  string `json:"name"  yaml:"name"`
	Owner string `json:"owner" yaml:"owner"`
	Repo  string `json:"repo"  yaml:"repo"`
}
