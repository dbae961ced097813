package identity

import (
	"encoding/json"
	"errors"
	"os"

	"github.com/safetrail/sentinel-agent/pkg/file"
)

// Identity holds the tourist's unique identifier and other metadata carried
// by the device this agent runs on.
type Identity struct {
	ID       string          `json:"tourist_id,omitempty"`
	Name     string          `json:"tourist_name,omitempty"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// TouristInfoInterface defines methods for managing the tourist identity.
type TouristInfoInterface interface {
	LoadTouristInfo() error
	SaveTouristID(touristID string) error
	GetTouristID() string
	GetTouristIdentity() *Identity
}

// TouristInfo manages the tourist identity and its associated file
// operations.
type TouristInfo struct {
	TouristInfoFile string
	Identity        Identity
	fileOps         file.FileOperations
}

// NewTouristInfo initializes a new TouristInfo instance.
func NewTouristInfo(filePath string, fileOps file.FileOperations) TouristInfoInterface {
	return &TouristInfo{
		TouristInfoFile: filePath,
		fileOps:         fileOps,
		Identity:        Identity{},
	}
}

// LoadTouristInfo reads the tourist information from the file and populates
// the Identity field. A missing file leaves the identity empty so a
// generated id can be saved later.
func (t *TouristInfo) LoadTouristInfo() error {
	err := t.fileOps.ReadJsonFile(t.TouristInfoFile, &t.Identity)
	if err != nil {
		if os.IsNotExist(err) {
			t.Identity = Identity{}
			return nil
		}
		return err
	}

	return nil
}

// SaveTouristID persists the given tourist id back to the identity file.
func (t *TouristInfo) SaveTouristID(touristID string) error {
	if touristID == "" {
		return errors.New("tourist id must not be empty")
	}

	t.Identity.ID = touristID
	return t.fileOps.WriteJsonFile(t.TouristInfoFile, &t.Identity)
}

// GetTouristID returns the current tourist id, empty if none is set.
func (t *TouristInfo) GetTouristID() string {
	return t.Identity.ID
}

// GetTouristIdentity returns the current tourist Identity.
func (t *TouristInfo) GetTouristIdentity() *Identity {
	return &t.Identity
}
