package calib

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	goutils "go.viam.com/utils"
	"gopkg.in/yaml.v2"
)

// NewStereoParamsFromJSONFile reads a stereo parameter set exported as JSON.
func NewStereoParamsFromJSONFile(jsonPath string) (*StereoParams, error) {
	//nolint:gosec
	jsonFile, err := os.Open(jsonPath)
	if err != nil {
		return nil, errors.Wrap(err, "error opening JSON file")
	}
	defer goutils.UncheckedErrorFunc(jsonFile.Close)
	return ReadStereoParamsJSON(jsonFile)
}

// ReadStereoParamsJSON decodes and validates a JSON parameter set.
func ReadStereoParamsJSON(r io.Reader) (*StereoParams, error) {
	byteValue, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "error reading JSON data")
	}
	params := &StereoParams{}
	if err := json.Unmarshal(byteValue, params); err != nil {
		return nil, errors.Wrap(err, "error parsing JSON string")
	}
	if err := params.CheckValid(); err != nil {
		return nil, err
	}
	return params, nil
}

// NewStereoParamsFromYAMLFile reads a stereo parameter set exported as YAML,
// the format the calibration exporter writes.
func NewStereoParamsFromYAMLFile(yamlPath string) (*StereoParams, error) {
	//nolint:gosec
	yamlFile, err := os.Open(yamlPath)
	if err != nil {
		return nil, errors.Wrap(err, "error opening YAML file")
	}
	defer goutils.UncheckedErrorFunc(yamlFile.Close)
	return ReadStereoParamsYAML(yamlFile)
}

// ReadStereoParamsYAML decodes and validates a YAML parameter set.
func ReadStereoParamsYAML(r io.Reader) (*StereoParams, error) {
	byteValue, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "error reading YAML data")
	}
	params := &StereoParams{}
	if err := yaml.Unmarshal(byteValue, params); err != nil {
		return nil, errors.Wrap(err, "error parsing YAML string")
	}
	if err := params.CheckValid(); err != nil {
		return nil, err
	}
	return params, nil
}

// NewStereoParamsFromFile dispatches on the file extension.
func NewStereoParamsFromFile(path string) (*StereoParams, error) {
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		return NewStereoParamsFromYAMLFile(path)
	case ".json":
		return NewStereoParamsFromJSONFile(path)
	default:
		return nil, errors.Errorf("unknown calibration file extension %q", filepath.Ext(path))
	}
}
