package monitoring

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recorder struct {
	errs []error
	tags []map[string]string
}

func (r *recorder) CaptureException(err error, tags map[string]string) {
	r.errs = append(r.errs, err)
	r.tags = append(r.tags, tags)
}
func (r *recorder) Flush(time.Duration) {}

func TestRecoverToCapturesPanic(t *testing.T) {
	rec := &recorder{}
	run := func() (err error) {
		defer func() { err = RecoverTo(rec, recover(), map[string]string{"component": "engine"}) }()
		panic("boom")
	}
	err := run()
	assert.EqualError(t, err, "panic: boom")
	if assert.Len(t, rec.errs, 1) {
		assert.Equal(t, "engine", rec.tags[0]["component"])
	}
}

func TestRecoverToKeepsErrorValue(t *testing.T) {
	sentinel := errors.New("bad")
	err := RecoverTo(nil, sentinel, nil)
	assert.ErrorIs(t, err, sentinel)
	assert.NoError(t, RecoverTo(nil, nil, nil))
}
