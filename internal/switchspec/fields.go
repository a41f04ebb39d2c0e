package switchspec

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// SwitchType enumerates the supported switch feel categories.
type SwitchType string

const (
	SwitchTypeLinear        SwitchType = "LINEAR"
	SwitchTypeTactile       SwitchType = "TACTILE"
	SwitchTypeClicky        SwitchType = "CLICKY"
	SwitchTypeSilentLinear  SwitchType = "SILENT_LINEAR"
	SwitchTypeSilentTactile SwitchType = "SILENT_TACTILE"
)

// Technology enumerates the supported actuation technologies.
type Technology string

const (
	TechnologyMechanical Technology = "MECHANICAL"
	TechnologyOptical    Technology = "OPTICAL"
	TechnologyMagnetic   Technology = "MAGNETIC"
)

const (
	maxNameLength     = 100
	maxMaterialLength = 50
	maxNotesLength    = 2000
	maxURLLength      = 512
	maxForceCn        = 500.0
	maxTravelMm       = 10.0
	maxFluxMT         = 5000.0
)

var (
	// ErrInvalidField indicates a descriptive field is out of bounds.
	ErrInvalidField = errors.New("switchspec: invalid field")
	// ErrUnsafeImageURL indicates an image URL that must not be fetched or stored.
	ErrUnsafeImageURL = errors.New("switchspec: unsafe image url")
)

// Fields holds the descriptive specification shared by user-owned switches and
// master switches. Both gorm models embed it, and edit/sync snapshots marshal it.
type Fields struct {
	Name                  string     `gorm:"column:name;size:100;not null" json:"name"`
	Manufacturer          string     `gorm:"column:manufacturer;size:100" json:"manufacturer"`
	Type                  SwitchType `gorm:"column:switch_type;size:32" json:"type"`
	Technology            Technology `gorm:"column:technology;size:32" json:"technology"`
	ActuationForce        float64    `gorm:"column:actuation_force_cn" json:"actuationForce"`
	BottomOutForce        float64    `gorm:"column:bottom_out_force_cn" json:"bottomOutForce"`
	PreTravel             float64    `gorm:"column:pre_travel_mm" json:"preTravel"`
	TotalTravel           float64    `gorm:"column:total_travel_mm" json:"totalTravel"`
	SpringWeight          string     `gorm:"column:spring_weight;size:50" json:"springWeight"`
	TopHousing            string     `gorm:"column:top_housing;size:50" json:"topHousing"`
	BottomHousing         string     `gorm:"column:bottom_housing;size:50" json:"bottomHousing"`
	Stem                  string     `gorm:"column:stem;size:50" json:"stem"`
	StemShape             string     `gorm:"column:stem_shape;size:50" json:"stemShape"`
	TopHousingColor       string     `gorm:"column:top_housing_color;size:50" json:"topHousingColor"`
	BottomHousingColor    string     `gorm:"column:bottom_housing_color;size:50" json:"bottomHousingColor"`
	StemColor             string     `gorm:"column:stem_color;size:50" json:"stemColor"`
	FactoryLubed          bool       `gorm:"column:factory_lubed;not null;default:false" json:"factoryLubed"`
	Notes                 string     `gorm:"column:notes;type:text" json:"notes"`
	ImageURL              string     `gorm:"column:image_url;size:512" json:"imageUrl"`
	InitialForce          float64    `gorm:"column:initial_force_cn" json:"initialForce"`
	InitialMagneticFlux   float64    `gorm:"column:initial_magnetic_flux_mt" json:"initialMagneticFlux"`
	BottomOutMagneticFlux float64    `gorm:"column:bottom_out_magnetic_flux_mt" json:"bottomOutMagneticFlux"`
}

// magneticFieldNames are only meaningful when Technology is MAGNETIC.
var magneticFieldNames = []string{"initialForce", "initialMagneticFlux", "bottomOutMagneticFlux"}

// fieldNames is the canonical ordering of every syncable descriptive field.
var fieldNames = []string{
	"name", "manufacturer", "type", "technology",
	"actuationForce", "bottomOutForce", "preTravel", "totalTravel",
	"springWeight", "topHousing", "bottomHousing", "stem", "stemShape",
	"topHousingColor", "bottomHousingColor", "stemColor",
	"factoryLubed", "notes", "imageUrl",
	"initialForce", "initialMagneticFlux", "bottomOutMagneticFlux",
}

// FieldNames returns the canonical list of syncable field names.
func FieldNames() []string {
	return append([]string(nil), fieldNames...)
}

// MagneticFieldNames returns the names gated on MAGNETIC technology.
func MagneticFieldNames() []string {
	return append([]string(nil), magneticFieldNames...)
}

// IsKnownField reports whether name is a recognized descriptive field.
func IsKnownField(name string) bool {
	for _, candidate := range fieldNames {
		if candidate == name {
			return true
		}
	}
	return false
}

// Apply copies the named fields from src into dst and returns the names that
// were actually applied. Unknown names are skipped.
func Apply(dst *Fields, src Fields, names []string) []string {
	applied := make([]string, 0, len(names))
	for _, name := range names {
		if applyField(dst, src, name) {
			applied = append(applied, name)
		}
	}
	return applied
}

func applyField(dst *Fields, src Fields, name string) bool {
	switch name {
	case "name":
		dst.Name = src.Name
	case "manufacturer":
		dst.Manufacturer = src.Manufacturer
	case "type":
		dst.Type = src.Type
	case "technology":
		dst.Technology = src.Technology
	case "actuationForce":
		dst.ActuationForce = src.ActuationForce
	case "bottomOutForce":
		dst.BottomOutForce = src.BottomOutForce
	case "preTravel":
		dst.PreTravel = src.PreTravel
	case "totalTravel":
		dst.TotalTravel = src.TotalTravel
	case "springWeight":
		dst.SpringWeight = src.SpringWeight
	case "topHousing":
		dst.TopHousing = src.TopHousing
	case "bottomHousing":
		dst.BottomHousing = src.BottomHousing
	case "stem":
		dst.Stem = src.Stem
	case "stemShape":
		dst.StemShape = src.StemShape
	case "topHousingColor":
		dst.TopHousingColor = src.TopHousingColor
	case "bottomHousingColor":
		dst.BottomHousingColor = src.BottomHousingColor
	case "stemColor":
		dst.StemColor = src.StemColor
	case "factoryLubed":
		dst.FactoryLubed = src.FactoryLubed
	case "notes":
		dst.Notes = src.Notes
	case "imageUrl":
		dst.ImageURL = src.ImageURL
	case "initialForce":
		dst.InitialForce = src.InitialForce
	case "initialMagneticFlux":
		dst.InitialMagneticFlux = src.InitialMagneticFlux
	case "bottomOutMagneticFlux":
		dst.BottomOutMagneticFlux = src.BottomOutMagneticFlux
	default:
		return false
	}
	return true
}

// Diff returns the names of fields whose values differ between two field sets.
func Diff(before, after Fields) []string {
	changed := make([]string, 0)
	probe := before
	for _, name := range fieldNames {
		applyField(&probe, after, name)
		if probe != before {
			changed = append(changed, name)
			applyField(&probe, before, name)
		}
	}
	return changed
}

// Validate enforces the bounds shared by every ingestion path.
func (f Fields) Validate() error {
	name := strings.TrimSpace(f.Name)
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidField)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidField, maxNameLength)
	}
	if len(f.Manufacturer) > maxNameLength {
		return fmt.Errorf("%w: manufacturer exceeds %d characters", ErrInvalidField, maxNameLength)
	}
	if f.Type != "" && !isValidType(f.Type) {
		return fmt.Errorf("%w: unknown switch type %q", ErrInvalidField, f.Type)
	}
	if f.Technology != "" && !isValidTechnology(f.Technology) {
		return fmt.Errorf("%w: unknown technology %q", ErrInvalidField, f.Technology)
	}
	for label, value := range map[string]float64{
		"actuationForce": f.ActuationForce,
		"bottomOutForce": f.BottomOutForce,
		"initialForce":   f.InitialForce,
	} {
		if value < 0 || value > maxForceCn {
			return fmt.Errorf("%w: %s must be between 0 and %g", ErrInvalidField, label, maxForceCn)
		}
	}
	for label, value := range map[string]float64{
		"preTravel":   f.PreTravel,
		"totalTravel": f.TotalTravel,
	} {
		if value < 0 || value > maxTravelMm {
			return fmt.Errorf("%w: %s must be between 0 and %g", ErrInvalidField, label, maxTravelMm)
		}
	}
	for label, value := range map[string]float64{
		"initialMagneticFlux":   f.InitialMagneticFlux,
		"bottomOutMagneticFlux": f.BottomOutMagneticFlux,
	} {
		if value < 0 || value > maxFluxMT {
			return fmt.Errorf("%w: %s must be between 0 and %g", ErrInvalidField, label, maxFluxMT)
		}
	}
	for label, value := range map[string]string{
		"springWeight":       f.SpringWeight,
		"topHousing":         f.TopHousing,
		"bottomHousing":      f.BottomHousing,
		"stem":               f.Stem,
		"stemShape":          f.StemShape,
		"topHousingColor":    f.TopHousingColor,
		"bottomHousingColor": f.BottomHousingColor,
		"stemColor":          f.StemColor,
	} {
		if len(value) > maxMaterialLength {
			return fmt.Errorf("%w: %s exceeds %d characters", ErrInvalidField, label, maxMaterialLength)
		}
	}
	if len(f.Notes) > maxNotesLength {
		return fmt.Errorf("%w: notes exceed %d characters", ErrInvalidField, maxNotesLength)
	}
	if f.ImageURL != "" {
		if len(f.ImageURL) > maxURLLength {
			return fmt.Errorf("%w: imageUrl exceeds %d characters", ErrInvalidField, maxURLLength)
		}
		if err := ValidateImageURL(f.ImageURL); err != nil {
			return err
		}
	}
	return nil
}

func isValidType(value SwitchType) bool {
	switch value {
	case SwitchTypeLinear, SwitchTypeTactile, SwitchTypeClicky, SwitchTypeSilentLinear, SwitchTypeSilentTactile:
		return true
	}
	return false
}

func isValidTechnology(value Technology) bool {
	switch value {
	case TechnologyMechanical, TechnologyOptical, TechnologyMagnetic:
		return true
	}
	return false
}

// ValidateImageURL rejects URLs that could be abused to probe internal
// networks when the server later fetches them.
func ValidateImageURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnsafeImageURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%w: scheme %q", ErrUnsafeImageURL, parsed.Scheme)
	}
	host := parsed.Hostname()
	if host == "" {
		return fmt.Errorf("%w: missing host", ErrUnsafeImageURL)
	}
	lowered := strings.ToLower(host)
	if lowered == "localhost" || strings.HasSuffix(lowered, ".localhost") || strings.HasSuffix(lowered, ".local") || strings.HasSuffix(lowered, ".internal") {
		return fmt.Errorf("%w: host %q", ErrUnsafeImageURL, host)
	}
	if ip := net.ParseIP(host); ip != nil {
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsUnspecified() {
			return fmt.Errorf("%w: host %q", ErrUnsafeImageURL, host)
		}
	}
	return nil
}
