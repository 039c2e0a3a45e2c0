package job

import "context"

// genStep is one message flowing from the generator goroutine back to
// whoever is driving it.
type genStep struct {
	value any
	done  bool
	err   error
}

// Generator adapts a GeneratorFunc into something the state machine can
// drive with discrete Send calls, reproducing Python generator semantics
// (spec §4.4, §8 scenario 5: successive send(None), send(1), send(2) yield
// 0, 1, 3, then the generator is exhausted) on top of a goroutine and two
// unbuffered channels. The first Send's argument is discarded, matching
// send(None) priming a fresh Python generator.
type Generator struct {
	valuesCh chan genStep
	sendCh   chan any
	started  bool
	done     bool
}

// NewGenerator starts fn running on its own goroutine, suspended until the
// first call to Send/Next. Backends call this from RunGenerator.
func NewGenerator(ctx context.Context, fn GeneratorFunc, args []any) *Generator {
	g := &Generator{
		valuesCh: make(chan genStep),
		sendCh:   make(chan any),
	}
	yield := func(v any) any {
		g.valuesCh <- genStep{value: v}
		return <-g.sendCh
	}
	go func() {
		result, err := fn(ctx, args, yield)
		g.valuesCh <- genStep{value: result, done: true, err: err}
	}()
	return g
}

// Next is equivalent to Send(nil): advance the generator without feeding a
// value back in.
func (g *Generator) Next() (value any, done bool, err error) {
	return g.Send(nil)
}

// Send resumes the generator, delivering v as the result of the yield
// expression that suspended it, and returns the next yielded value (or the
// final result, with done=true). Calling Send again after done=true does
// not panic and resumes nothing: it returns (nil, true, nil).
func (g *Generator) Send(v any) (value any, done bool, err error) {
	if g.done {
		return nil, true, nil
	}
	if g.started {
		g.sendCh <- v
	}
	g.started = true

	step := <-g.valuesCh
	if step.done {
		g.done = true
	}
	return step.value, step.done, step.err
}
