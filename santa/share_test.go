/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package santa

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestShareLinks(t *testing.T) {
	a := Assignment{
		Giver:    Participant{ID: "1", Name: "Ana"},
		Receiver: Participant{ID: "2", Name: "João & Co"},
	}

	msg := ShareMessage(a)
	require.Equal(t, "Hi Ana! Your secret santa is: João & Co. Shhh!", msg)

	require.Equal(t,
		"https://wa.me/?text=Hi%20Ana%21%20Your%20secret%20santa%20is%3A%20Jo%C3%A3o%20%26%20Co.%20Shhh%21",
		WhatsAppURL(msg),
	)

	require.Equal(t, "sms:?body=a%20b", SMSURL("a b", false))
	require.Equal(t, "sms:&body=a%20b", SMSURL("a b", true))
}

func TestIsIOS(t *testing.T) {
	require.True(t, IsIOS("Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X)"))
	require.True(t, IsIOS("Mozilla/5.0 (iPad; CPU OS 16_0 like Mac OS X)"))
	require.False(t, IsIOS("Mozilla/5.0 (Linux; Android 14)"))
}
