/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHumanReadableSize(t *testing.T) {
	cases := map[int]string{
		0:          "0 B",
		23:         "23 B",
		1023:       "1023 B",
		1024:       "1.0 KiB",
		1536:       "1.5 KiB",
		5 << 20:    "5.0 MiB",
		1 << 30:    "1.0 GiB",
		1536 << 20: "1.5 GiB",
	}

	for n, want := range cases {
		assert.Equal(t, want, humanReadableSize(n), "%d bytes", n)
	}
}
