package main

import (
	"flag"
	"log"
	"runtime"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
)

func main() {
	flag.Parse()
	if err := validateConfig(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	runtime.GOMAXPROCS(runtime.NumCPU())

	g := newGame()
	if *recordDefaultPGO {
		stop, err := startDefaultPGORecording("default.pgo")
		if err != nil {
			log.Fatalf("starting profile capture: %v", err)
		}
		g.pgoStop = stop
		g.pgoDeadline = time.Now().Add(pgoRecordDuration)
		g.enableAutoWalk(pgoRecordDuration)
		log.Printf("recording default.pgo for %s", pgoRecordDuration)
	}
	g.initAudio()
	g.start()

	ebiten.SetWindowSize(w*windowScale, h*windowScale)
	ebiten.SetWindowTitle("Acoustic Ray Tracing")
	if err := ebiten.RunGame(g); err != nil {
		log.Fatalf("run: %v", err)
	}
}
