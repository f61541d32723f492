package infer

// Status tags an outbound worker message.
type Status int

const (
	// StatusInitiate reports that the worker has begun loading its model.
	StatusInitiate Status = iota + 1
	// StatusReady reports that the model is loaded and inference can run.
	StatusReady
	// StatusComplete reports the outcome of an embed request. Embedding is
	// nil when inference produced nothing (for example, it failed).
	StatusComplete
)

// String returns the wire name of the status.
func (s Status) String() string {
	switch s {
	case StatusInitiate:
		return "initiate"
	case StatusReady:
		return "ready"
	case StatusComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// Message is one outbound event from the worker. Messages are delivered in
// order, one at a time, on the worker's message channel.
type Message struct {
	Status    Status
	Embedding []float32
}

// Request is one inbound instruction to the worker.
type Request interface {
	isRequest()
}

// PreloadRequest asks the worker to load its model ahead of the first
// embed request.
type PreloadRequest struct {
	NoCache bool
}

// EmbedRequest asks the worker to embed a text.
type EmbedRequest struct {
	Text    string
	NoCache bool
}

func (PreloadRequest) isRequest() {}
func (EmbedRequest) isRequest()   {}
