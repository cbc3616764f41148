package utils

import (
	"strconv"
	"sync/atomic"
)

// Increment is a goroutine safe counter, optionally bounded by a known total
// so that it can render progress such as "3/151".
type Increment struct {
	counter atomic.Int64
	total   int64
}

func (i *Increment) Increase() int {
	return int(i.counter.Add(1))
}

func (i *Increment) Value() int {
	return int(i.counter.Load())
}

func (i *Increment) String() string {
	if i.total <= 0 {
		return strconv.FormatInt(i.counter.Load(), 10)
	}
	return strconv.FormatInt(i.counter.Load(), 10) + "/" + strconv.FormatInt(i.total, 10)
}

func NewIncrement(total ...int) *Increment {
	incr := new(Increment)
	if len(total) > 0 {
		incr.total = int64(total[0])
	}
	return incr
}
