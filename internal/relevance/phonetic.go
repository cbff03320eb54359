package relevance

// PhoneticConfig is the default PhoneticConfiguration
type PhoneticConfig struct {
	fuzziness FuzzinessConfiguration
}

var _ PhoneticConfiguration = (*PhoneticConfig)(nil)

// NewPhoneticConfig creates a phonetic configuration. fuzziness may be nil.
func NewPhoneticConfig(fuzziness FuzzinessConfiguration) *PhoneticConfig {
	p := &PhoneticConfig{}
	if !isNil(fuzziness) {
		p.fuzziness = fuzziness
	}
	return p
}

func (p *PhoneticConfig) FuzzinessConfiguration() FuzzinessConfiguration {
	return p.fuzziness
}

func (p *PhoneticConfig) FuzzinessEnabled() bool {
	return p.fuzziness != nil
}
