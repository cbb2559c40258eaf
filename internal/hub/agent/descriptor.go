package agent

// Capabilities advertise what an agent accepts and keeps.
type Capabilities struct {
	Streaming  bool `yaml:"streaming" json:"streaming"`
	AcceptsURL bool `yaml:"accepts_url" json:"accepts_url"`
	Memory     bool `yaml:"memory" json:"memory"`
}

// Descriptor is the static description of an agent type.
type Descriptor struct {
	Type                Type         `yaml:"type" json:"type" validate:"required"`
	Name                string       `yaml:"name" json:"name" validate:"required"`
	Description         string       `yaml:"description" json:"description"`
	Features            []string     `yaml:"features" json:"features"`
	RequiredCredentials []string     `yaml:"required_credentials" json:"required_credentials" validate:"dive,required"`
	Capabilities        Capabilities `yaml:"capabilities" json:"capabilities"`
}

// Validate checks the descriptor fields.
func (d Descriptor) Validate() error {
	if err := validate.Struct(d); err != nil {
		return ErrInvalidInput.MsgErr("invalid agent descriptor", err)
	}
	return nil
}
