package models

import (
	"encoding/json"
	"fmt"

	"github.com/desertthunder/yauma/internal/shared"
)

// MarshalJSON implements [json.Marshaler].
func (o ObjRequest) MarshalJSON() ([]byte, error) {
	switch o.Kind {
	case ObjPlaylistList, ObjSong, ObjClientList:
		return unit(string(o.Kind))
	case ObjPlaylist, ObjClient:
		return tagged(string(o.Kind), o.Value)
	}
	return nil, unknownVariant("ObjRequest", string(o.Kind))
}

// UnmarshalJSON implements [json.Unmarshaler].
func (o *ObjRequest) UnmarshalJSON(data []byte) error {
	tag, payload, err := splitTag("ObjRequest", data)
	if err != nil {
		return err
	}

	kind := ObjKind(tag)
	switch kind {
	case ObjPlaylistList, ObjSong, ObjClientList:
		if err := requireUnit("ObjRequest", tag, payload); err != nil {
			return err
		}
		*o = ObjRequest{Kind: kind}
	case ObjPlaylist, ObjClient:
		var value string
		if err := decodeInto("ObjRequest", tag, payload, &value); err != nil {
			return err
		}
		*o = ObjRequest{Kind: kind, Value: value}
	default:
		return unknownVariant("ObjRequest", tag)
	}
	return nil
}

func (o ObjRequest) String() string {
	if o.Kind == ObjPlaylist || o.Kind == ObjClient {
		return fmt.Sprintf("%s(%s)", o.Kind, o.Value)
	}
	return string(o.Kind)
}

// MarshalJSON implements [json.Marshaler].
func (a Attr) MarshalJSON() ([]byte, error) {
	switch a {
	case AttrName, AttrURL, AttrID:
		return unit(string(a))
	}
	return nil, unknownVariant("Attr", string(a))
}

// UnmarshalJSON implements [json.Unmarshaler].
func (a *Attr) UnmarshalJSON(data []byte) error {
	tag, payload, err := splitTag("Attr", data)
	if err != nil {
		return err
	}
	switch attr := Attr(tag); attr {
	case AttrName, AttrURL, AttrID:
		if err := requireUnit("Attr", tag, payload); err != nil {
			return err
		}
		*a = attr
		return nil
	}
	return unknownVariant("Attr", tag)
}

// MarshalJSON implements [json.Marshaler].
func (r RequestType) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case RequestGetAll, RequestDownload:
		return tagged(string(r.Kind), r.Object)
	case RequestError, RequestMessage:
		return tagged(string(r.Kind), r.Text)
	case RequestGet:
		return tagged(string(r.Kind), r.Attr)
	case RequestSet, RequestAdd, RequestRemove:
		return unit(string(r.Kind))
	}
	return nil, unknownVariant("RequestType", string(r.Kind))
}

// UnmarshalJSON implements [json.Unmarshaler].
func (r *RequestType) UnmarshalJSON(data []byte) error {
	tag, payload, err := splitTag("RequestType", data)
	if err != nil {
		return err
	}

	out := RequestType{Kind: RequestKind(tag)}
	switch out.Kind {
	case RequestGetAll, RequestDownload:
		err = decodeInto("RequestType", tag, payload, &out.Object)
	case RequestError, RequestMessage:
		err = decodeInto("RequestType", tag, payload, &out.Text)
	case RequestGet:
		err = decodeInto("RequestType", tag, payload, &out.Attr)
	case RequestSet, RequestAdd, RequestRemove:
		err = requireUnit("RequestType", tag, payload)
	default:
		return unknownVariant("RequestType", tag)
	}
	if err != nil {
		return err
	}
	*r = out
	return nil
}

func (r RequestType) String() string {
	switch r.Kind {
	case RequestGetAll, RequestDownload:
		return fmt.Sprintf("%s(%s)", r.Kind, r.Object)
	case RequestGet:
		return fmt.Sprintf("%s(%s)", r.Kind, r.Attr)
	case RequestError, RequestMessage:
		return fmt.Sprintf("%s(%d bytes)", r.Kind, len(r.Text))
	}
	return string(r.Kind)
}

// MarshalJSON implements [json.Marshaler].
func (e ErrorKind) MarshalJSON() ([]byte, error) {
	if e.Source != SourcePlaylistNotFound {
		return nil, unknownVariant("SourceError", string(e.Source))
	}
	return tagged("SourceError", string(e.Source))
}

// UnmarshalJSON implements [json.Unmarshaler].
func (e *ErrorKind) UnmarshalJSON(data []byte) error {
	tag, payload, err := splitTag("ErrorKind", data)
	if err != nil {
		return err
	}
	if tag != "SourceError" {
		return unknownVariant("ErrorKind", tag)
	}

	var reason string
	if err := decodeInto("ErrorKind", tag, payload, &reason); err != nil {
		return err
	}
	if SourceError(reason) != SourcePlaylistNotFound {
		return unknownVariant("SourceError", reason)
	}
	*e = ErrorKind{Source: SourceError(reason)}
	return nil
}

// MarshalJSON implements [json.Marshaler].
func (a AnswerType) MarshalJSON() ([]byte, error) {
	tag := string(a.Kind)
	switch a.Kind {
	case AnswerPlaylistList:
		return tagged(tag, nonNil(a.Playlists))
	case AnswerPlaylist, AnswerDownloadFinish:
		return tagged(tag, a.Playlist)
	case AnswerSongs:
		return tuple(tag, a.Playlist, nonNil(a.Songs))
	case AnswerSong:
		return tagged(tag, a.Song)
	case AnswerClient, AnswerMessage:
		return tagged(tag, a.Text)
	case AnswerError:
		return tagged(tag, a.Error)
	case AnswerDownloadProgress:
		return tuple(tag, a.Playlist, a.Done, a.Total)
	}
	return nil, unknownVariant("AnswerType", tag)
}

// UnmarshalJSON implements [json.Unmarshaler].
func (a *AnswerType) UnmarshalJSON(data []byte) error {
	tag, payload, err := splitTag("AnswerType", data)
	if err != nil {
		return err
	}

	out := AnswerType{Kind: AnswerKind(tag)}
	switch out.Kind {
	case AnswerPlaylistList:
		err = decodeInto("AnswerType", tag, payload, &out.Playlists)
	case AnswerPlaylist, AnswerDownloadFinish:
		err = decodeInto("AnswerType", tag, payload, &out.Playlist)
	case AnswerSongs:
		err = decodeTuple("AnswerType", tag, payload, &out.Playlist, &out.Songs)
	case AnswerSong:
		err = decodeInto("AnswerType", tag, payload, &out.Song)
	case AnswerClient, AnswerMessage:
		err = decodeInto("AnswerType", tag, payload, &out.Text)
	case AnswerError:
		err = decodeInto("AnswerType", tag, payload, &out.Error)
	case AnswerDownloadProgress:
		err = decodeTuple("AnswerType", tag, payload, &out.Playlist, &out.Done, &out.Total)
	default:
		return unknownVariant("AnswerType", tag)
	}
	if err != nil {
		return err
	}
	*a = out
	return nil
}

func (a AnswerType) String() string {
	switch a.Kind {
	case AnswerPlaylistList:
		return fmt.Sprintf("%s(%d)", a.Kind, len(a.Playlists))
	case AnswerPlaylist, AnswerDownloadFinish:
		return fmt.Sprintf("%s(%s)", a.Kind, a.Playlist.ID)
	case AnswerSongs:
		return fmt.Sprintf("%s(%s, %d)", a.Kind, a.Playlist.ID, len(a.Songs))
	case AnswerSong:
		return fmt.Sprintf("%s(%s)", a.Kind, a.Song.ID)
	case AnswerClient:
		return fmt.Sprintf("%s(%s)", a.Kind, a.Text)
	case AnswerError:
		return fmt.Sprintf("%s(%s)", a.Kind, a.Error.Source)
	case AnswerDownloadProgress:
		return fmt.Sprintf("%s(%s, %d/%d)", a.Kind, a.Playlist.ID, a.Done, a.Total)
	}
	return string(a.Kind)
}

type requestJSON struct {
	Client *string         `json:"client"`
	Type   json.RawMessage `json:"ty"`
}

// MarshalJSON implements [json.Marshaler].
func (r Request) MarshalJSON() ([]byte, error) {
	ty, err := r.Type.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return json.Marshal(requestJSON{Client: &r.Client, Type: ty})
}

// UnmarshalJSON implements [json.Unmarshaler]. Both fields are required.
func (r *Request) UnmarshalJSON(data []byte) error {
	var raw requestJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: request: %v", shared.ErrParse, err)
	}
	if raw.Client == nil || raw.Type == nil {
		return fmt.Errorf("%w: request: missing client or ty", shared.ErrParse)
	}

	var ty RequestType
	if err := ty.UnmarshalJSON(raw.Type); err != nil {
		return err
	}
	*r = Request{Client: *raw.Client, Type: ty}
	return nil
}

type answerJSON struct {
	Client *string         `json:"client"`
	Data   json.RawMessage `json:"data"`
}

// MarshalJSON implements [json.Marshaler].
func (a Answer) MarshalJSON() ([]byte, error) {
	data, err := a.Data.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return json.Marshal(answerJSON{Client: &a.Client, Data: data})
}

// UnmarshalJSON implements [json.Unmarshaler]. Both fields are required.
func (a *Answer) UnmarshalJSON(data []byte) error {
	var raw answerJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: answer: %v", shared.ErrParse, err)
	}
	if raw.Client == nil || raw.Data == nil {
		return fmt.Errorf("%w: answer: missing client or data", shared.ErrParse)
	}

	var d AnswerType
	if err := d.UnmarshalJSON(raw.Data); err != nil {
		return err
	}
	*a = Answer{Client: *raw.Client, Data: d}
	return nil
}
