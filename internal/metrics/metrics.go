package metrics

type Recorder interface {
	ResolveFinished(result string)
	TrackStarted(strategy string)
	TrackFailed(reason string)
	QueueCreated()
	QueueDestroyed(reason string)
}

type Nop struct{}

func (Nop) ResolveFinished(string) {}
func (Nop) TrackStarted(string)    {}
func (Nop) TrackFailed(string)     {}
func (Nop) QueueCreated()          {}
func (Nop) QueueDestroyed(string)  {}
