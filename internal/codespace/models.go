package codespace

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"
)

// TmpPrefix marks ephemeral codespace identifiers. Durable identifiers never
// carry it, so the two namespaces cannot collide.
const TmpPrefix = "tmp-"

// Field names shared between the cache hashes, the Mongo documents and the
// read/write routing in the service layer.
const (
	FieldUUID      = "uuid"
	FieldName      = "name"
	FieldCode      = "code"
	FieldCreatedBy = "created_by"
	FieldCreatedAt = "created_at"
)

// liveFields is the explicit classification of cache-backed fields. Reads of
// these go through the cache once any write has landed there; everything else
// is served straight from the durable store.
var liveFields = map[string]struct{}{
	FieldCode: {},
}

// IsLiveField reports whether reads/writes of the named field route through
// the cache store.
func IsLiveField(name string) bool {
	_, ok := liveFields[name]
	return ok
}

// LiveFieldNames returns the live field set in a stable order, for bulk cache
// reads during flush.
func LiveFieldNames() []string {
	return []string{FieldCode}
}

// DefaultName is the placeholder display name for new codespaces.
const DefaultName = "Untitled"

// DefaultCode is the starter content used when a codespace is created without
// explicit code. Not empty on purpose: an empty string means the user cleared
// the editor, which is a distinct state.
const DefaultCode = "# Welcome to your codespace\n# Start typing to share code in real time.\n\nprint(\"Hello, world!\")\n"

var (
	// ErrDoesNotExist is returned when an ephemeral codespace is absent from
	// the cache store.
	ErrDoesNotExist = errors.New("tmp codespace does not exist")
	// ErrNoCachedChanges is returned by Flush when the cache holds nothing
	// for the codespace (never edited, or already reconciled and cleared).
	ErrNoCachedChanges = errors.New("no cached changes to save")
	// ErrUnknownField is returned for reads/writes of a field name outside
	// the model.
	ErrUnknownField = errors.New("unknown codespace field")
	// ErrImmutableField is returned for writes to fields fixed at creation.
	ErrImmutableField = errors.New("field is immutable")
)

// Codespace is the durable document model. Code is the only live field; Name
// is mutable through direct durable writes; UUID, CreatedBy and CreatedAt are
// fixed at creation.
type Codespace struct {
	UUID      string    `json:"uuid" bson:"uuid"`
	Name      string    `json:"name" bson:"name"`
	Code      string    `json:"code" bson:"code"`
	CreatedBy string    `json:"created_by" bson:"createdBy"`
	CreatedAt time.Time `json:"created_at" bson:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" bson:"updatedAt"`
}

// TmpCodespace is an ephemeral codespace living entirely in the cache store.
// The code value is kept as a pointer so "never set" and "explicitly empty"
// stay distinguishable.
type TmpCodespace struct {
	UUID      string    `json:"uuid"`
	code      *string   `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// NewTmpCodespace builds an ephemeral codespace. An empty uuid gets a fresh
// tmp-prefixed identifier assigned.
func NewTmpCodespace(uuid string, code *string) *TmpCodespace {
	if uuid == "" {
		uuid = TmpPrefix + NewUUID()
	}
	return &TmpCodespace{UUID: uuid, code: code, CreatedAt: time.Now().UTC()}
}

// Code resolves the three content states: nil means the codespace was created
// without code and yields the default template; an explicit empty string is
// an intentionally blank document and stays empty; anything else is returned
// verbatim.
func (t *TmpCodespace) Code() string {
	if t.code == nil {
		return DefaultCode
	}
	return *t.code
}

// SetCode overwrites the content. Passing the empty string is a valid blank
// document, not a reset to the default.
func (t *TmpCodespace) SetCode(code string) {
	t.code = &code
}

// NewUUID returns a random canonical UUIDv4 string.
func NewUUID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic(err) // crypto/rand never fails on supported platforms
	}
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80
	h := hex.EncodeToString(b)
	return h[0:8] + "-" + h[8:12] + "-" + h[12:16] + "-" + h[16:20] + "-" + h[20:32]
}
