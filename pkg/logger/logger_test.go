package logger

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recorder struct {
	lines   []string
	syncErr error
	synced  int
}

func (r *recorder) add(level, msg string, kv ...any) {
	r.lines = append(r.lines, fmt.Sprintf("%s %s %v", level, msg, kv))
}

func (r *recorder) Log(m string, kv ...any)   { r.add("LOG", m, kv...) }
func (r *recorder) Debug(m string, kv ...any) { r.add("DEBUG", m, kv...) }
func (r *recorder) Info(m string, kv ...any)  { r.add("INFO", m, kv...) }
func (r *recorder) Warn(m string, kv ...any)  { r.add("WARN", m, kv...) }
func (r *recorder) Error(m string, kv ...any) { r.add("ERROR", m, kv...) }
func (r *recorder) Fatal(m string, kv ...any) { r.add("FATAL", m, kv...) }

func (r *recorder) Sync() error {
	r.synced++
	return r.syncErr
}

func TestFanOut(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	Init(a, b)
	t.Cleanup(func() { singleton.Store(nil) })

	Info("[Queue] Received message", "queue", "q")
	Warn("slow")

	for _, r := range []*recorder{a, b} {
		assert.Equal(t, []string{"INFO [Queue] Received message [queue q]", "WARN slow []"}, r.lines)
	}
}

func TestCallsBeforeInitAreDropped(t *testing.T) {
	singleton.Store(nil)
	assert.NotPanics(t, func() {
		Info("nothing")
		Debug("nothing")
	})
	assert.NoError(t, Sync())
}

func TestSync(t *testing.T) {
	ok, failing := &recorder{}, &recorder{syncErr: errors.New("sync failed")}
	Init(ok, failing)
	t.Cleanup(func() { singleton.Store(nil) })

	assert.EqualError(t, Sync(), "sync failed")
	assert.Equal(t, 1, ok.synced)
	assert.Equal(t, 1, failing.synced)
}
