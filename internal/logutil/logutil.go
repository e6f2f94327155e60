// Package logutil configures where log output goes and prints the
// pre-genesis countdown the engine waits through before its first slot.
package logutil

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// ConfigurePersistentLogging adds a log-to-file writer; file content is
// identical to stdout.
func ConfigurePersistentLogging(logFileName string) error {
	logrus.WithField("logFileName", logFileName).Info("logs will be made persistent")
	f, err := os.OpenFile(logFileName, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return err
	}

	mw := io.MultiWriter(os.Stdout, f)
	logrus.SetOutput(mw)

	logrus.Info("file logging initialized")
	return nil
}

// CountdownToGenesis blocks, printing a status line every secondsCount
// seconds, until genesisTime arrives.
func CountdownToGenesis(genesisTime time.Time, secondsCount int) {
	ticker := time.NewTicker(time.Duration(secondsCount) * time.Second)
	defer ticker.Stop()

	for {
		remaining := time.Until(genesisTime)
		if remaining <= 0 {
			fmt.Println("genesis time")
			return
		}

		select {
		case <-time.After(remaining):
			fmt.Println("genesis time")
			return
		case <-ticker.C:
			fmt.Printf("%02d minutes to genesis\n", time.Until(genesisTime).Round(time.Minute)/time.Minute+1)
		}
	}
}
