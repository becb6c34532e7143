package taskpool

import (
	"github.com/tochemey/goakt/v3/actor"
	"github.com/tochemey/goakt/v3/goaktpb"
	"google.golang.org/protobuf/types/known/emptypb"
)

// taskSignal is the message a worker actor receives to run one task. goakt's
// actor messaging is proto-native, so taskSignal embeds the stock
// emptypb.Empty to satisfy proto.Message without generating a bespoke schema
// for what is, in-process, never actually serialized.
type taskSignal struct {
	*emptypb.Empty
	task Task
	done chan struct{}
}

func newTaskSignal(task Task, done chan struct{}) *taskSignal {
	return &taskSignal{Empty: &emptypb.Empty{}, task: task, done: done}
}

// workerActor executes whatever taskSignal lands in its mailbox. It carries
// no state of its own; goakt's supervision restarts it on panic recovery, so
// a crashing task takes down one worker slot, not the pool.
type workerActor struct{}

func newWorkerActor() *workerActor {
	return &workerActor{}
}

func (w *workerActor) PreStart(*actor.Context) error {
	return nil
}

func (w *workerActor) Receive(ctx *actor.ReceiveContext) {
	switch msg := ctx.Message().(type) {
	case *goaktpb.PostStart:
		// nothing to warm up
	case *taskSignal:
		msg.task()
		if msg.done != nil {
			close(msg.done)
		}
	default:
		ctx.Unhandled()
	}
}

func (w *workerActor) PostStop(*actor.Context) error {
	return nil
}
