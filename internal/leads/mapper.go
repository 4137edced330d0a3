// Package leads turns hydrated inquiry form data into Insightly lead payloads.
// Mapping and validation are pure: no I/O and no clock reads.
package leads

import (
	"fmt"
	"sort"

	"inquiry-sync-workers/internal/common/config"
	"inquiry-sync-workers/internal/common/errors"
	"inquiry-sync-workers/internal/common/insightly"
	"inquiry-sync-workers/internal/models"
)

// UnknownLastName is used when a form provides no last name.
const UnknownLastName = "Unknown"

// UnsupportedFormTypeError is returned for a form type with no mapping.
type UnsupportedFormTypeError struct {
	FormType models.FormType
}

func (e *UnsupportedFormTypeError) Error() string {
	return fmt.Sprintf("Unsupported formType: %q", string(e.FormType))
}

func (e *UnsupportedFormTypeError) ErrorCode() errors.ErrorCode {
	return errors.ErrCodeUnsupportedFormType
}

// MapFunc maps one form type. base already carries the configured defaults.
type MapFunc func(data map[string]interface{}, base *insightly.Lead) *insightly.Lead

// Mapper dispatches on form type.
type Mapper struct {
	cfg     *config.CRMConfig
	mappers map[models.FormType]MapFunc
}

func NewMapper(cfg *config.CRMConfig) *Mapper {
	return &Mapper{
		cfg: cfg,
		mappers: map[models.FormType]MapFunc{
			models.FormTypeMediationSelfReferral: mapSelfReferral,
			models.FormTypeRestorativeReferral:   mapRestorativeReferral,
		},
	}
}

// Register adds or replaces the mapping for a form type.
func (m *Mapper) Register(ft models.FormType, fn MapFunc) {
	m.mappers[ft] = fn
}

// FormTypes returns the supported form types, sorted.
func (m *Mapper) FormTypes() []models.FormType {
	out := make([]models.FormType, 0, len(m.mappers))
	for ft := range m.mappers {
		out = append(out, ft)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Map builds a fresh lead for the given form type and hydrated form data.
func (m *Mapper) Map(ft models.FormType, data map[string]interface{}) (*insightly.Lead, error) {
	fn, ok := m.mappers[ft]
	if !ok {
		return nil, &UnsupportedFormTypeError{FormType: ft}
	}
	lead := fn(data, m.base(ft))
	if lead.LastName == "" {
		lead.LastName = UnknownLastName
	}
	return lead, nil
}

func (m *Mapper) base(ft models.FormType) *insightly.Lead {
	return &insightly.Lead{
		LeadStatusID:      copyID(m.cfg.DefaultLeadStatusID),
		LeadSourceID:      m.cfg.LeadSourceFor(ft),
		OwnerUserID:       copyID(m.cfg.DefaultOwnerUserID),
		ResponsibleUserID: copyID(m.cfg.DefaultResponsibleUserID),
		AddressCountry:    m.cfg.DefaultCountry,
	}
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
