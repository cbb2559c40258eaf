package agent

import (
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// DecodeOptions decodes opts into out, a pointer to the agent's options struct
// pre-filled with defaults, and validates the result. Keys without a matching
// field are ignored. Field names come from the json tag.
func DecodeOptions(opts Options, out any) error {
	if len(opts) > 0 {
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           out,
			TagName:          "json",
			WeaklyTypedInput: true,
		})
		if err != nil {
			return ErrInvalidOptions.MsgErr("unable to decode options", err)
		}
		if err := dec.Decode(map[string]any(opts)); err != nil {
			return ErrInvalidOptions.MsgErr("unable to decode options", err)
		}
	}
	if err := validate.Struct(out); err != nil {
		return ErrInvalidOptions.MsgErr("invalid options", err)
	}
	return nil
}

// Validate runs the struct validator on v.
func Validate(v any) error {
	return validate.Struct(v)
}
