package main

import (
	"fmt"
	"log"

	"gieditor/internal/audioclock"
	"gieditor/internal/bulk"
	"gieditor/internal/clock"
	"gieditor/internal/config"
	"gieditor/internal/devsim"
	"gieditor/internal/editor"
	"gieditor/internal/midiport"
	"gieditor/internal/params"
	"gieditor/internal/sysex"
	"gieditor/internal/transport"
)

// openSession connects a transport to the device (or the simulator), starts
// the tick clock and returns the session with its closer.
func openSession(cfg config.Config, simulate bool) (*editor.Session, func(), error) {
	bulk.Debug = cfg.LogLevel == "debug"

	tr := transport.New(transport.Options{
		DeviceID:     cfg.DeviceID,
		ModelID:      cfg.ModelID,
		TimeoutTicks: cfg.TimeoutTicks,
	})

	var (
		wire      transport.Wire
		closeWire = func() {}
	)
	if simulate {
		dev := devsim.New(cfg.DeviceID, cfg.ModelID)
		seedSimulator(dev)
		wire = dev
		log.Println("[sim] using in-memory device")
	} else {
		port, closer, err := midiport.Open(cfg.Port)
		if err != nil {
			return nil, nil, err
		}
		wire, closeWire = port, closer
	}

	tick := func() { tr.Tick(wire) }
	var stopClock func()
	switch cfg.Clock {
	case config.ClockPortAudio:
		stop, err := audioclock.Start(cfg.SampleRate, cfg.FramesPerBuffer, tick)
		if err != nil {
			closeWire()
			return nil, nil, err
		}
		stopClock = func() {
			if err := stop(); err != nil {
				log.Printf("[clock] portaudio termination error: %v", err)
			}
		}
	default:
		stopClock = clock.Start(cfg.TickPeriod, tick)
	}

	sess := editor.New(params.NewJunoGi(), tr, cfg.BlacklistOnTimeout)
	addrs, err := cfg.BlacklistAddresses()
	if err == nil {
		err = sess.ApplyBlacklist(addrs)
	}
	if err != nil {
		stopClock()
		closeWire()
		return nil, nil, err
	}

	closed := false
	closer := func() {
		if closed {
			return
		}
		closed = true
		_ = tr.Close()
		stopClock()
		closeWire()
	}
	return sess, closer, nil
}

// seedSimulator gives the in-memory device recognisable names.
func seedSimulator(dev *devsim.Device) {
	addr := editor.PatchNameBase
	for i := 0; i < editor.PatchCount; i++ {
		dev.Poke(addr, []byte(fmt.Sprintf("%-16s", fmt.Sprintf("User %03d", i+1)))...)
		addr = sysex.AddAddresses(addr, editor.PatchNameStride)
	}
	dev.Poke(params.TemporaryLiveSet, []byte(fmt.Sprintf("%-16s", "Sim Live Set"))...)
	dev.Poke(params.TemporaryStudioSet, []byte(fmt.Sprintf("%-16s", "Sim Studio Set"))...)
}
