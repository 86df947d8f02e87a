/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"fmt"
)

var sizeUnits = []string{"B", "KiB", "MiB", "GiB"}

// humanReadableSize renders a response body size for SERVE log lines.
func humanReadableSize(n int) string {
	size := float64(n)

	unit := 0
	for size >= 1024 && unit < len(sizeUnits)-1 {
		size /= 1024
		unit++
	}

	if unit == 0 {
		return fmt.Sprintf("%d %s", n, sizeUnits[0])
	}

	return fmt.Sprintf("%.1f %s", size, sizeUnits[unit])
}
