package source

import (
	"context"

	"github.com/jochenvg/go-udev"

	"github.com/kf7qqd/waveband/internal/logx"
)

// WatchHotplug logs USB device arrival/removal events so an operator
// notices a yanked-and-replugged SDR dongle needs a restart — it never
// opens the device itself, device drivers stay out of scope. It runs as a
// standing watcher rather than a one-shot enumeration.
//
// The returned cancel function stops the watch; the caller should defer it.
func WatchHotplug(ctx context.Context, log *logx.Logger) (cancel func(), err error) {
	u := udev.Udev{}
	mon := u.NewMonitorFromNetlink("udev")
	if err := mon.FilterAddMatchSubsystem("usb"); err != nil {
		return nil, err
	}

	watchCtx, stop := context.WithCancel(ctx)
	devices, errs, err := mon.DeviceChan(watchCtx)
	if err != nil {
		stop()
		return nil, err
	}

	go func() {
		for {
			select {
			case <-watchCtx.Done():
				return
			case d, ok := <-devices:
				if !ok {
					return
				}
				log.Info("HOTPLUG", "usb device %s: %s (vendor=%s product=%s)",
					d.Action(), d.Devpath(), d.PropertyValue("ID_VENDOR_ID"), d.PropertyValue("ID_MODEL_ID"))
			case e, ok := <-errs:
				if !ok {
					continue
				}
				log.Warn("HOTPLUG", "udev monitor error: %v", e)
			}
		}
	}()

	return stop, nil
}
