package nosleep

import (
	"context"
	"time"
)

func Retry(f func() error) error {
	for i := 0; ; i++ {
		if err := f(); err == nil || i == 3 {
			return err
		}
		time.Sleep(time.Second) // want `time.Sleep is forbidden outside tests`
	}
}

func Wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
