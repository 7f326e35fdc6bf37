package handoff

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

const (
	publicFileMode  = 0o644
	privateFileMode = 0o600
)

// WriteFile writes v as indented JSON. Private key files are written with mode 0600.
func WriteFile(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "failed to encode %s", filepath.Base(path))
	}
	data = append(data, '\n')

	mode := os.FileMode(publicFileMode)
	if kf, ok := v.(*KeyFile); ok && kf.IsPrivate() {
		mode = privateFileMode
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "failed to create directory %s", dir)
		}
	}
	if err := os.WriteFile(path, data, mode); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	// WriteFile keeps the mode of an existing file.
	if err := os.Chmod(path, mode); err != nil {
		return errors.Wrapf(err, "failed to set mode on %s", path)
	}
	return nil
}

// ReadFile decodes the JSON file at path into v. Unknown fields are rejected.
func ReadFile(path string, v interface{}) error {
	file, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "failed to open %s", path)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return errors.Wrapf(err, "failed to parse %s", path)
	}
	return nil
}

// ReadKeyFile reads a key file.
func ReadKeyFile(path string) (*KeyFile, error) {
	var kf KeyFile
	if err := ReadFile(path, &kf); err != nil {
		return nil, err
	}
	return &kf, nil
}

// ReadRequest reads and validates a blind request.
func ReadRequest(path string) (*BlindRequest, error) {
	var req BlindRequest
	if err := ReadFile(path, &req); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid request in %s", path)
	}
	return &req, nil
}

// ReadResponse reads and validates a blind response.
func ReadResponse(path string) (*BlindResponse, error) {
	var resp BlindResponse
	if err := ReadFile(path, &resp); err != nil {
		return nil, err
	}
	if err := resp.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid response in %s", path)
	}
	return &resp, nil
}
