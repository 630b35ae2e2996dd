package models

// Frame senders.
const (
	SenderYou = "you"
	SenderBot = "bot"
)

// Frame types, in the order a successful turn emits them.
const (
	FrameStream = "stream"
	FrameStart  = "start"
	FrameInfo   = "info"
	FrameEnd    = "end"
	FrameError  = "error"
)

// ChatFrame is the unit of communication on the chat websocket.
type ChatFrame struct {
	Sender  string `json:"sender"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

// SourceRef is one citation target, sent to the client inside an info
// frame before any answer text. Text holds the citation index the
// answer will use in brackets.
type SourceRef struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// SourceList is the payload carried by an info frame.
type SourceList struct {
	Sources []SourceRef `json:"sources"`
}
