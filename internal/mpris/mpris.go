package mpris

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/yauma/internal/models"
	"github.com/desertthunder/yauma/internal/player"
	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/godbus/dbus/v5/prop"
)

const (
	BusName     = "org.mpris.MediaPlayer2.yauma"
	ObjectPath  = dbus.ObjectPath("/org/mpris/MediaPlayer2")
	RootIface   = "org.mpris.MediaPlayer2"
	PlayerIface = "org.mpris.MediaPlayer2.Player"

	noTrack      = dbus.ObjectPath("/org/mpris/MediaPlayer2/TrackList/NoTrack")
	pollInterval = time.Second
)

// NowPlaying reports the song currently loaded in the player, if the caller knows it.
type NowPlaying func() (models.Song, bool)

// Option configures [Serve].
type Option func(*options)

type options struct {
	nowPlaying NowPlaying
	interval   time.Duration
}

// WithNowPlaying supplies song details for the Metadata property.
func WithNowPlaying(fn NowPlaying) Option {
	return func(o *options) { o.nowPlaying = fn }
}

// Serve claims [BusName] on the session bus and serves p until ctx is cancelled.
func Serve(ctx context.Context, p player.Player, logger *log.Logger, opts ...Option) error {
	o := options{interval: pollInterval}
	for _, opt := range opts {
		opt(&o)
	}

	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return fmt.Errorf("connect session bus: %w", err)
	}
	defer conn.Close()

	reply, err := conn.RequestName(BusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("request name %s: %w", BusName, err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("name %s already taken", BusName)
	}

	root := mediaPlayer{}
	controls := playerControls{player: p}
	if err := conn.Export(root, ObjectPath, RootIface); err != nil {
		return err
	}
	if err := conn.Export(controls, ObjectPath, PlayerIface); err != nil {
		return err
	}

	props, err := prop.Export(conn, ObjectPath, propertyMap(p, o.nowPlaying))
	if err != nil {
		return fmt.Errorf("export properties: %w", err)
	}

	node := &introspect.Node{
		Name: string(ObjectPath),
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			prop.IntrospectData,
			{Name: RootIface, Methods: introspect.Methods(root), Properties: props.Introspection(RootIface)},
			{Name: PlayerIface, Methods: introspect.Methods(controls), Properties: props.Introspection(PlayerIface)},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), ObjectPath, "org.freedesktop.DBus.Introspectable"); err != nil {
		return err
	}
	logger.Info("mpris bridge ready", "name", BusName)

	poller := newPoller(p, o.nowPlaying)
	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			for _, ch := range poller.poll() {
				if err := setProperty(props, ch.name, ch.value); err != nil {
					logger.Debug("failed to update property", "property", ch.name, "error", err)
				}
			}
		}
	}
}

func setProperty(props *prop.Properties, name string, value any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	props.SetMust(PlayerIface, name, value)
	return nil
}

func propertyMap(p player.Player, nowPlaying NowPlaying) prop.Map {
	state := p.State()
	song, ok := current(nowPlaying)
	return prop.Map{
		RootIface: {
			"CanQuit":             {Value: false, Emit: prop.EmitConst},
			"CanRaise":            {Value: false, Emit: prop.EmitConst},
			"HasTrackList":        {Value: false, Emit: prop.EmitConst},
			"Identity":            {Value: "yauma", Emit: prop.EmitConst},
			"SupportedUriSchemes": {Value: []string{"https"}, Emit: prop.EmitConst},
			"SupportedMimeTypes":  {Value: []string{}, Emit: prop.EmitConst},
		},
		PlayerIface: {
			"PlaybackStatus": {Value: playbackStatus(state), Emit: prop.EmitTrue},
			"LoopStatus":     {Value: loopStatus(state), Emit: prop.EmitTrue},
			"Rate":           {Value: 1.0, Emit: prop.EmitConst},
			"Shuffle":        {Value: state.Shuffled, Emit: prop.EmitTrue},
			"Metadata":       {Value: metadata(song, ok, state), Emit: prop.EmitTrue},
			"Volume":         {Value: float64(state.Volume) / 100, Writable: true, Emit: prop.EmitTrue, Callback: volumeCallback(p)},
			"Position":       {Value: state.Position.Microseconds(), Emit: prop.EmitFalse},
			"MinimumRate":    {Value: 1.0, Emit: prop.EmitConst},
			"MaximumRate":    {Value: 1.0, Emit: prop.EmitConst},
			"CanGoNext":      {Value: true, Emit: prop.EmitConst},
			"CanGoPrevious":  {Value: true, Emit: prop.EmitConst},
			"CanPlay":        {Value: true, Emit: prop.EmitConst},
			"CanPause":       {Value: true, Emit: prop.EmitConst},
			"CanSeek":        {Value: true, Emit: prop.EmitConst},
			"CanControl":     {Value: true, Emit: prop.EmitConst},
		},
	}
}

func volumeCallback(p player.Player) func(*prop.Change) *dbus.Error {
	return func(c *prop.Change) *dbus.Error {
		v, ok := c.Value.(float64)
		if !ok {
			return prop.ErrInvalidArg
		}
		return dbusError(p.SetVolume(int(v * 100)))
	}
}

func playbackStatus(s player.State) string {
	switch {
	case s.Stopped:
		return "Stopped"
	case s.Paused:
		return "Paused"
	default:
		return "Playing"
	}
}

func loopStatus(s player.State) string {
	switch s.Repeat {
	case player.RepeatSong:
		return "Track"
	case player.RepeatPlaylist:
		return "Playlist"
	default:
		return "None"
	}
}

func current(nowPlaying NowPlaying) (models.Song, bool) {
	if nowPlaying == nil {
		return models.Song{}, false
	}
	return nowPlaying()
}

// metadata builds the xesam map. Without song details it falls back to the player title.
func metadata(song models.Song, ok bool, s player.State) map[string]dbus.Variant {
	if s.Stopped {
		return map[string]dbus.Variant{"mpris:trackid": dbus.MakeVariant(noTrack)}
	}

	md := map[string]dbus.Variant{
		"mpris:trackid": dbus.MakeVariant(trackID(song.ID)),
		"xesam:title":   dbus.MakeVariant(s.Title),
	}
	length := s.Duration
	if ok {
		md["xesam:title"] = dbus.MakeVariant(song.Title)
		md["xesam:artist"] = dbus.MakeVariant(song.Artists)
		if song.URL != "" {
			md["xesam:url"] = dbus.MakeVariant(song.URL)
		}
		if length == 0 {
			length = song.Duration
		}
	}
	if length > 0 {
		md["mpris:length"] = dbus.MakeVariant(length.Microseconds())
	}
	return md
}

// trackID maps a song id onto an object path. Characters D-Bus does not allow become '_'.
func trackID(id string) dbus.ObjectPath {
	if id == "" {
		return dbus.ObjectPath("/org/yauma/track/current")
	}
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, id)
	return dbus.ObjectPath("/org/yauma/track/" + clean)
}

func dbusError(err error) *dbus.Error {
	if err == nil {
		return nil
	}
	return dbus.MakeFailedError(err)
}
