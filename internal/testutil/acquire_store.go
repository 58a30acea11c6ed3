package testutil

import (
	"context"
	"io/ioutil"
	"os"
	"sync"
	"time"

	"github.com/andrebq/lostminer/store"
)

type (
	TestLog interface {
		Fatal(...interface{})
		Log(...interface{})
	}

	// Clock is a manually advanced time source
	Clock struct {
		sync.Mutex
		now time.Time
	}
)

func AcquireStore(ctx context.Context, t TestLog, opts store.Options) (*store.Store, func()) {
	dir, err := ioutil.TempDir("", "lostminer-tests")
	if err != nil {
		t.Fatal(err)
	}
	st, err := store.Open(ctx, dir, opts)
	if err != nil {
		os.RemoveAll(dir)
		t.Fatal(err)
	}
	return st, func() {
		err := st.Close()
		if err != nil {
			t.Log("unable to close store", err)
		}
		err = os.RemoveAll(dir)
		if err != nil {
			t.Log("unable to cleanup temp dir", dir)
		}
	}
}

func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	c.Lock()
	defer c.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.Lock()
	c.now = c.now.Add(d)
	c.Unlock()
}
