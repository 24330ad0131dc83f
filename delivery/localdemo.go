package delivery

import "context"

// LocalDemo never contacts a network. It accepts every send and hands the
// code back in the result so a development or demo deployment can display
// it. It must never be the only barrier in a production configuration.
type LocalDemo struct{}

func NewLocalDemo() *LocalDemo { return &LocalDemo{} }

func (*LocalDemo) Name() string { return "local-demo" }

func (*LocalDemo) Configured() bool { return true }

func (*LocalDemo) Send(_ context.Context, _ string, msg Message) (Result, error) {
	return Result{
		Accepted: true,
		Channel:  "local-demo",
		DemoCode: msg.Code,
	}, nil
}
