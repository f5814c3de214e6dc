// Package automata embeds the dialog definitions shipped with the gateway.
package automata

import _ "embed"

// Delivery is the default package-delivery dialog.
//
//go:embed delivery.yaml
var Delivery []byte
