package models

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/yauma/internal/shared"
)

func samplePlaylist() Playlist {
	return Playlist{ID: "pl1", Title: "Road Trip", Tags: []string{"summer"}, Size: 2}
}

func sampleSongs() []Song {
	return []Song{
		{
			ID:       "s1",
			Title:    "Intro",
			Artists:  []string{"A", "B"},
			Tags:     []string{},
			Duration: 3*time.Minute + 250*time.Millisecond,
			URL:      "https://example.com/s1",
			ISRC:     "USRC17607839",
		},
		{
			ID:         "s2",
			Title:      "Silence",
			Artists:    []string{},
			Tags:       []string{},
			URL:        "/music/s2.opus",
			Downloaded: true,
		},
	}
}

func TestRequestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want string
	}{
		{name: "GetAll PlaylistList", req: NewRequest(AddresseeAll, GetAll(PlaylistListObj())), want: `{"client":"all","ty":{"GetAll":"PlaylistList"}}`},
		{name: "GetAll Playlist", req: NewRequest("Spotify", GetAll(PlaylistObj("abc"))), want: `{"client":"Spotify","ty":{"GetAll":{"Playlist":"abc"}}}`},
		{name: "GetAll Song", req: NewRequest("Youtube", GetAll(SongObj()))},
		{name: "GetAll Client", req: NewRequest("Youtube", GetAll(ClientObj("Youtube")))},
		{name: "GetAll ClientList", req: NewRequest(AddresseeAll, GetAll(ClientListObj())), want: `{"client":"all","ty":{"GetAll":"ClientList"}}`},
		{name: "Download", req: NewRequest("Spotify", Download(PlaylistObj("abc")))},
		{name: "Get", req: NewRequest("Spotify", Get(AttrURL)), want: `{"client":"Spotify","ty":{"Get":"Url"}}`},
		{name: "Set", req: NewRequest("Spotify", Set()), want: `{"client":"Spotify","ty":"Set"}`},
		{name: "Add", req: NewRequest("Spotify", Add())},
		{name: "Remove", req: NewRequest("Spotify", Remove())},
		{name: "Message", req: NewRequest("Spotify", Message("code=xyz"))},
		{name: "Message Empty", req: NewRequest("Spotify", Message(""))},
		{name: "Error", req: NewRequest("Spotify", ErrorRequest("bad"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.req)
			if err != nil {
				t.Fatalf("marshal failed: %v", err)
			}
			if tt.want != "" && string(data) != tt.want {
				t.Errorf("expected %s, got %s", tt.want, data)
			}

			got, err := ParseRequest(string(data))
			if err != nil {
				t.Fatalf("ParseRequest failed: %v", err)
			}
			if !reflect.DeepEqual(got, tt.req) {
				t.Errorf("round trip mismatch: %+v != %+v", got, tt.req)
			}
		})
	}
}

func TestAnswerRoundTrip(t *testing.T) {
	p := samplePlaylist()
	songs := sampleSongs()

	tests := []struct {
		name string
		ans  Answer
	}{
		{name: "PlaylistList", ans: NewAnswer("Spotify", PlaylistListAnswer([]Playlist{p, {ID: "pl2", Title: "Empty", Tags: []string{}}}))},
		{name: "PlaylistList Empty", ans: NewAnswer("Spotify", PlaylistListAnswer([]Playlist{}))},
		{name: "Playlist", ans: NewAnswer("Spotify", PlaylistAnswer(p))},
		{name: "Songs", ans: NewAnswer("Spotify", SongsAnswer(p, songs))},
		{name: "Songs Empty", ans: NewAnswer("Spotify", SongsAnswer(p, []Song{}))},
		{name: "Song", ans: NewAnswer("Youtube", SongAnswer(songs[1]))},
		{name: "Client", ans: NewAnswer("Youtube", ClientAnswer("Youtube"))},
		{name: "Message", ans: NewAnswer("Spotify", MessageAnswer("https://accounts.example.com/authorize"))},
		{name: "Error", ans: NewAnswer("Spotify", ErrorAnswer(SourcePlaylistNotFound))},
		{name: "DownloadFinish", ans: NewAnswer("Spotify", DownloadFinishAnswer(p))},
		{name: "DownloadProgress", ans: NewAnswer("Spotify", DownloadProgressAnswer(p, 3, 10))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.ans)
			if err != nil {
				t.Fatalf("marshal failed: %v", err)
			}

			got, err := ParseAnswer(string(data))
			if err != nil {
				t.Fatalf("ParseAnswer failed: %v", err)
			}
			if !reflect.DeepEqual(got, tt.ans) {
				t.Errorf("round trip mismatch:\n got  %+v\n want %+v", got, tt.ans)
			}
		})
	}
}

func TestWireShapes(t *testing.T) {
	t.Run("Song", func(t *testing.T) {
		data, err := json.Marshal(Song{ID: "x", Title: "t", Duration: 1500 * time.Millisecond})
		if err != nil {
			t.Fatalf("marshal failed: %v", err)
		}
		want := `{"title":"t","artists":[],"tags":[],"id":"x","duration":{"secs":1,"nanos":500000000},"url":"","downloaded":false}`
		if string(data) != want {
			t.Errorf("expected %s, got %s", want, data)
		}
	})

	t.Run("Error Answer", func(t *testing.T) {
		data, _ := json.Marshal(NewAnswer("Spotify", ErrorAnswer(SourcePlaylistNotFound)))
		want := `{"client":"Spotify","data":{"Error":{"SourceError":"PlaylistNotFound"}}}`
		if string(data) != want {
			t.Errorf("expected %s, got %s", want, data)
		}
	})

	t.Run("DownloadProgress Tuple", func(t *testing.T) {
		data, _ := json.Marshal(DownloadProgressAnswer(Playlist{ID: "p", Title: "P"}, 1, 2))
		want := `{"DownloadProgress":[{"title":"P","tags":[],"id":"p","size":0},1,2]}`
		if string(data) != want {
			t.Errorf("expected %s, got %s", want, data)
		}
	})
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		answer  bool
		wantErr error
	}{
		{name: "unknown request tag", payload: `{"client":"all","ty":{"Teleport":"x"}}`, wantErr: shared.ErrUnknownVariant},
		{name: "unknown unit tag", payload: `{"client":"all","ty":"Shuffle"}`, wantErr: shared.ErrUnknownVariant},
		{name: "unknown object tag", payload: `{"client":"all","ty":{"GetAll":"Album"}}`, wantErr: shared.ErrUnknownVariant},
		{name: "unknown answer tag", payload: `{"client":"x","data":{"Lyrics":"la"}}`, answer: true, wantErr: shared.ErrUnknownVariant},
		{name: "unknown error reason", payload: `{"client":"x","data":{"Error":{"SourceError":"Banned"}}}`, answer: true, wantErr: shared.ErrUnknownVariant},
		{name: "not json", payload: `hello`, wantErr: shared.ErrParse},
		{name: "missing ty", payload: `{"client":"all"}`, wantErr: shared.ErrParse},
		{name: "two tags", payload: `{"client":"all","ty":{"Set":null,"Add":null}}`, wantErr: shared.ErrParse},
		{name: "newtype without value", payload: `{"client":"all","ty":"GetAll"}`, wantErr: shared.ErrParse},
		{name: "unit with value", payload: `{"client":"all","ty":{"Set":1}}`, wantErr: shared.ErrParse},
		{name: "short tuple", payload: `{"client":"x","data":{"DownloadProgress":[{"title":"","tags":[],"id":"","size":0},1]}}`, answer: true, wantErr: shared.ErrParse},
		{name: "wrong payload type", payload: `{"client":"x","data":{"PlaylistList":"nope"}}`, answer: true, wantErr: shared.ErrParse},
		{name: "bad nanos", payload: `{"client":"x","data":{"Song":{"title":"","artists":[],"tags":[],"id":"","duration":{"secs":0,"nanos":2000000000},"url":"","downloaded":false}}}`, answer: true, wantErr: shared.ErrParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err error
			if tt.answer {
				_, err = ParseAnswer(tt.payload)
			} else {
				_, err = ParseRequest(tt.payload)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	t.Run("Unknown And Parse Are Distinct", func(t *testing.T) {
		_, err := ParseRequest(`{"client":"all","ty":"Shuffle"}`)
		if errors.Is(err, shared.ErrParse) {
			t.Errorf("unknown variant should not also be a parse error: %v", err)
		}
	})

	t.Run("Marshal Unknown Kind", func(t *testing.T) {
		if _, err := json.Marshal(NewRequest("x", RequestType{Kind: "Teleport"})); err == nil {
			t.Error("expected error for unknown kind")
		}
	})
}

func TestAddressedTo(t *testing.T) {
	tests := []struct {
		client string
		source string
		want   bool
	}{
		{client: "Spotify", source: "Spotify", want: true},
		{client: AddresseeAll, source: "Spotify", want: true},
		{client: "Youtube", source: "Spotify", want: false},
		{client: "spotify", source: "Spotify", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.client+"/"+tt.source, func(t *testing.T) {
			r := NewRequest(tt.client, GetAll(PlaylistListObj()))
			if got := r.AddressedTo(tt.source); got != tt.want {
				t.Errorf("AddressedTo(%q) = %v, want %v", tt.source, got, tt.want)
			}
		})
	}
}

func TestStrings(t *testing.T) {
	r := NewRequest("Spotify", Download(PlaylistObj("abc")))
	if got := r.String(); got != "Download(Playlist(abc)) -> Spotify" {
		t.Errorf("unexpected request string %q", got)
	}

	a := NewAnswer("Spotify", DownloadProgressAnswer(Playlist{ID: "abc"}, 1, 4))
	if got := a.String(); !strings.Contains(got, "1/4") {
		t.Errorf("unexpected answer string %q", got)
	}

	s := Song{Title: "Song", Artists: []string{"A", "B"}}
	if got := s.String(); got != "Song - A, B" {
		t.Errorf("unexpected song string %q", got)
	}
}

func TestParseISO8601Duration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{in: "PT4M13S", want: 4*time.Minute + 13*time.Second},
		{in: "PT1H", want: time.Hour},
		{in: "P1DT2H", want: 26 * time.Hour},
		{in: "P1Y", want: 365 * day},
		{in: "P2M", want: 60 * day},
		{in: "PT1M30.5S", want: time.Minute + 30*time.Second + 500*time.Millisecond},
		{in: "PT0S", want: 0},
		{in: "P0D", want: 0},
		{in: "P1W", want: 0},
		{in: "PT", want: 0},
		{in: "P", want: 0},
		{in: "4M13S", want: 0},
		{in: "PT13S4M", want: 0},
		{in: "PTXS", want: 0},
		{in: "", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseISO8601Duration(tt.in); got != tt.want {
				t.Errorf("ParseISO8601Duration(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
