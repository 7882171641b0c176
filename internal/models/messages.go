package models

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/desertthunder/yauma/internal/shared"
)

// AddresseeAll is the request addressee every source answers to.
const AddresseeAll = "all"

// RequestKind names a [RequestType] variant.
type RequestKind string

const (
	RequestGetAll   RequestKind = "GetAll"
	RequestError    RequestKind = "Error"
	RequestSet      RequestKind = "Set"
	RequestAdd      RequestKind = "Add"
	RequestRemove   RequestKind = "Remove"
	RequestGet      RequestKind = "Get"
	RequestDownload RequestKind = "Download"
	RequestMessage  RequestKind = "Message"
)

// ObjKind names an [ObjRequest] variant.
type ObjKind string

const (
	ObjPlaylistList ObjKind = "PlaylistList"
	ObjPlaylist     ObjKind = "Playlist"
	ObjSong         ObjKind = "Song"
	ObjClient       ObjKind = "Client"
	ObjClientList   ObjKind = "ClientList"
)

// Attr is the attribute selector of a Get request.
type Attr string

const (
	AttrName Attr = "Name"
	AttrURL  Attr = "Url"
	AttrID   Attr = "Id"
)

// AnswerKind names an [AnswerType] variant.
type AnswerKind string

const (
	AnswerPlaylistList     AnswerKind = "PlaylistList"
	AnswerPlaylist         AnswerKind = "Playlist"
	AnswerSongs            AnswerKind = "Songs"
	AnswerSong             AnswerKind = "Song"
	AnswerClient           AnswerKind = "Client"
	AnswerMessage          AnswerKind = "Message"
	AnswerError            AnswerKind = "Error"
	AnswerDownloadFinish   AnswerKind = "DownloadFinish"
	AnswerDownloadProgress AnswerKind = "DownloadProgress"
)

// SourceError is the reason a source could not satisfy a request.
type SourceError string

const SourcePlaylistNotFound SourceError = "PlaylistNotFound"

// ErrorKind is the payload of an Error answer. SourceError is its only variant.
type ErrorKind struct {
	Source SourceError
}

// ObjRequest selects what a GetAll or Download request operates on.
//
// Value holds the playlist id for [ObjPlaylist] and the source name for [ObjClient].
type ObjRequest struct {
	Kind  ObjKind
	Value string
}

// RequestType is the operation carried by a [Request].
//
// Object is set for GetAll and Download, Attr for Get, Text for Message and Error.
type RequestType struct {
	Kind   RequestKind
	Object ObjRequest
	Attr   Attr
	Text   string
}

// Request is a client to server envelope. Client names the addressed source or [AddresseeAll].
type Request struct {
	Client string
	Type   RequestType
}

// AnswerType is the payload of an [Answer].
//
// Which fields are meaningful depends on Kind:
//   - PlaylistList: Playlists
//   - Playlist, DownloadFinish: Playlist
//   - Songs: Playlist, Songs
//   - Song: Song
//   - Client, Message: Text
//   - Error: Error
//   - DownloadProgress: Playlist, Done, Total
type AnswerType struct {
	Kind      AnswerKind
	Playlists []Playlist
	Playlist  Playlist
	Songs     []Song
	Song      Song
	Text      string
	Error     ErrorKind
	Done      uint64
	Total     uint64
}

// Answer is a server to client envelope. Client names the responding source.
type Answer struct {
	Client string
	Data   AnswerType
}

// NewRequest builds a request addressed to client.
func NewRequest(client string, ty RequestType) Request {
	return Request{Client: client, Type: ty}
}

// AddressedTo reports whether a source called name should handle r.
func (r Request) AddressedTo(name string) bool {
	return r.Client == name || r.Client == AddresseeAll
}

func (r Request) String() string {
	return fmt.Sprintf("%s -> %s", r.Type, r.Client)
}

// NewAnswer builds an answer from the source called client.
func NewAnswer(client string, data AnswerType) Answer {
	return Answer{Client: client, Data: data}
}

func (a Answer) String() string {
	return fmt.Sprintf("%s <- %s", a.Data, a.Client)
}

func PlaylistListObj() ObjRequest { return ObjRequest{Kind: ObjPlaylistList} }
func PlaylistObj(id string) ObjRequest { return ObjRequest{Kind: ObjPlaylist, Value: id} }
func SongObj() ObjRequest { return ObjRequest{Kind: ObjSong} }
func ClientObj(name string) ObjRequest { return ObjRequest{Kind: ObjClient, Value: name} }
func ClientListObj() ObjRequest { return ObjRequest{Kind: ObjClientList} }

func GetAll(obj ObjRequest) RequestType { return RequestType{Kind: RequestGetAll, Object: obj} }
func Download(obj ObjRequest) RequestType { return RequestType{Kind: RequestDownload, Object: obj} }
func Get(attr Attr) RequestType { return RequestType{Kind: RequestGet, Attr: attr} }
func Message(text string) RequestType { return RequestType{Kind: RequestMessage, Text: text} }
func ErrorRequest(text string) RequestType {
	return RequestType{Kind: RequestError, Text: text}
}
func Set() RequestType { return RequestType{Kind: RequestSet} }
func Add() RequestType { return RequestType{Kind: RequestAdd} }
func Remove() RequestType { return RequestType{Kind: RequestRemove} }

func PlaylistListAnswer(playlists []Playlist) AnswerType {
	return AnswerType{Kind: AnswerPlaylistList, Playlists: playlists}
}

func PlaylistAnswer(p Playlist) AnswerType {
	return AnswerType{Kind: AnswerPlaylist, Playlist: p}
}

func SongsAnswer(p Playlist, songs []Song) AnswerType {
	return AnswerType{Kind: AnswerSongs, Playlist: p, Songs: songs}
}

func SongAnswer(s Song) AnswerType {
	return AnswerType{Kind: AnswerSong, Song: s}
}

func ClientAnswer(name string) AnswerType {
	return AnswerType{Kind: AnswerClient, Text: name}
}

func MessageAnswer(text string) AnswerType {
	return AnswerType{Kind: AnswerMessage, Text: text}
}

func ErrorAnswer(reason SourceError) AnswerType {
	return AnswerType{Kind: AnswerError, Error: ErrorKind{Source: reason}}
}

func DownloadFinishAnswer(p Playlist) AnswerType {
	return AnswerType{Kind: AnswerDownloadFinish, Playlist: p}
}

func DownloadProgressAnswer(p Playlist, done, total uint64) AnswerType {
	return AnswerType{Kind: AnswerDownloadProgress, Playlist: p, Done: done, Total: total}
}

// ParseRequest decodes one request payload.
//
// Errors wrap [shared.ErrUnknownVariant] for unrecognized tags and [shared.ErrParse] otherwise.
func ParseRequest(payload string) (Request, error) {
	var r Request
	if err := json.Unmarshal([]byte(payload), &r); err != nil {
		return Request{}, wrapParse("request", err)
	}
	return r, nil
}

// ParseAnswer decodes one answer payload. Errors are classified as in [ParseRequest].
func ParseAnswer(payload string) (Answer, error) {
	var a Answer
	if err := json.Unmarshal([]byte(payload), &a); err != nil {
		return Answer{}, wrapParse("answer", err)
	}
	return a, nil
}

func isClassified(err error) bool {
	return errors.Is(err, shared.ErrParse) || errors.Is(err, shared.ErrUnknownVariant)
}
