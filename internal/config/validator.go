package config

import "github.com/gookit/validate"

// Validator checks a loaded Config against its struct tags.
type Validator struct {
	conf *Config
}

func NewValidator(conf *Config) *Validator {
	return &Validator{conf: conf}
}

func (v *Validator) Validate() error {
	res := validate.Struct(v.conf)
	if !res.Validate() {
		return res.Errors.OneError()
	}
	return nil
}
