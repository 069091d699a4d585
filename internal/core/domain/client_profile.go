package domain

import (
	"fmt"
	"strings"
)

type TemplatePurpose string

const (
	TemplateQueryType           TemplatePurpose = "get_query_type"
	TemplateTechnicalOrCreative TemplatePurpose = "technical_or_creative"
	TemplateMetadataFilters     TemplatePurpose = "generate_metadata_filters_from_query"
	TemplateProductAnswer       TemplatePurpose = "query_products"
	TemplateFallThrough         TemplatePurpose = "fall_through_query_type"
	TemplateFAQSynthesis        TemplatePurpose = "query_faq"
)

// RequiredTemplates must exist for a client to be served.
var RequiredTemplates = []TemplatePurpose{
	TemplateQueryType,
	TemplateTechnicalOrCreative,
	TemplateMetadataFilters,
	TemplateProductAnswer,
	TemplateFallThrough,
}

// ClientProfile is the immutable per-client context handed to every pipeline
// call. Profiles are replaced wholesale, never mutated after load.
type ClientProfile struct {
	ClientID string

	FAQCollection     string
	ProductCollection string

	Templates map[TemplatePurpose]string

	// FilterableFields is the whitelist a Filter Spec may reference.
	FilterableFields []string
	// RelaxationOrder ranks fields most-important first.
	RelaxationOrder []string
	// MetadataFields are surfaced in product evidence context.
	MetadataFields []string
	// ValidValues is the value vocabulary per filterable field.
	ValidValues map[string][]string
	// ValidValuesText is the vocabulary as written on disk, for prompting.
	ValidValuesText string

	RangeFields []string
	LLMBackend  string
}

func (p *ClientProfile) Template(purpose TemplatePurpose) (string, error) {
	if p == nil {
		return "", WrapError(ErrConfiguration, "load template", fmt.Errorf("client profile is nil"))
	}
	tmpl, ok := p.Templates[purpose]
	if !ok || strings.TrimSpace(tmpl) == "" {
		return "", WrapError(ErrConfiguration, "load template", fmt.Errorf("client=%s template=%s missing", p.ClientID, purpose))
	}
	return tmpl, nil
}

func (p *ClientProfile) IsFilterable(field string) bool {
	for _, f := range p.FilterableFields {
		if f == field {
			return true
		}
	}
	return false
}

func (p *ClientProfile) IsRangeField(field string) bool {
	for _, f := range p.RangeFields {
		if f == field {
			return true
		}
	}
	return false
}

// Validate reports missing prerequisites as configuration errors.
func (p *ClientProfile) Validate() error {
	if strings.TrimSpace(p.ClientID) == "" {
		return WrapError(ErrConfiguration, "validate client profile", fmt.Errorf("client id is empty"))
	}
	for _, purpose := range RequiredTemplates {
		if _, err := p.Template(purpose); err != nil {
			return err
		}
	}
	if len(p.FilterableFields) == 0 {
		return WrapError(ErrConfiguration, "validate client profile", fmt.Errorf("client=%s has no filterable fields", p.ClientID))
	}
	if p.ValidValues == nil {
		return WrapError(ErrConfiguration, "validate client profile", fmt.Errorf("client=%s has no value vocabulary", p.ClientID))
	}
	return nil
}
