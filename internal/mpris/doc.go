// Package mpris exposes the terminal client's player on the D-Bus session bus.
//
// It implements the org.mpris.MediaPlayer2 and org.mpris.MediaPlayer2.Player interfaces so
// desktop media keys and widgets can pause, skip and read what is playing. Properties are
// polled from the [player.Player] once a second and only changed values are emitted.
package mpris
