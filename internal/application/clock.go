package application

import "time"

// Clock supplies timestamps for messages, results and failure records.
type Clock interface {
	Now() time.Time
}

// SystemClock returns wall time in UTC so every store sees the same zone.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock always reports the same instant; dipakai di test.
type FixedClock time.Time

func (c FixedClock) Now() time.Time { return time.Time(c) }
