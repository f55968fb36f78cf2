// Package main is the smoke command line tool.
package main

import (
	"os"

	"github.com/sirupsen/logrus"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "main",
			"error":    err.Error(),
		}).Error("Command failed")
		os.Exit(1)
	}
}
