//go:build !unix

package main

import "os"

func hostLabel() string {
	name, err := os.Hostname()
	if err != nil {
		return ""
	}
	return name
}
