package dependency

import (
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

// SettingsFor returns the settings addressed to the named dependency with
// the "name." prefix stripped.
func SettingsFor(name string, settings map[string]string) map[string]string {
	out := map[string]string{}
	prefix := name + "."
	for key, value := range settings {
		if strings.HasPrefix(key, prefix) {
			out[strings.TrimPrefix(key, prefix)] = value
		}
	}
	return out
}

// DecodeSettings decodes dependency settings into out, a pointer to a
// struct using "settings" field tags. String values are converted to the
// field types, so "true" fills a bool and "3" fills an int.
func DecodeSettings(settings map[string]string, out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "settings",
		WeaklyTypedInput: true,
		Result:           out,
		DecodeHook:       mapstructure.StringToSliceHookFunc(","),
	})
	if err != nil {
		return errors.Wrap(err, "building settings decoder")
	}
	return errors.Wrap(decoder.Decode(settings), "decoding settings")
}
