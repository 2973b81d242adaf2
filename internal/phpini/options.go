package phpini

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/hostwarden/backend/internal/models"
)

func (r DomainRef) validate() error {
	if r.ClientID == 0 || r.DomainID == 0 || !validDomainType(r.DomainType) {
		return fmt.Errorf("%w: client=%d domain=%d type=%q", ErrInvalidDomainRef, r.ClientID, r.DomainID, r.DomainType)
	}
	return nil
}

func (e *Engine) defaultIniOptions() IniOptions {
	fns := append([]string(nil), DangerousFunctions...)
	if !e.clientHas(PermMailFunction) {
		fns = append(fns, "mail")
	}
	r := e.reseller.Limits
	return IniOptions{
		AllowURLFopen:    false,
		DisplayErrors:    false,
		ErrorReporting:   ErrorReportingProduction,
		DisableFunctions: fns,
		Limits: Limits{
			MemoryLimit:       min(r.MemoryLimit, DefaultLimits.MemoryLimit),
			PostMaxSize:       min(r.PostMaxSize, DefaultLimits.PostMaxSize),
			UploadMaxFilesize: min(r.UploadMaxFilesize, DefaultLimits.UploadMaxFilesize),
			MaxExecutionTime:  min(r.MaxExecutionTime, DefaultLimits.MaxExecutionTime),
			MaxInputTime:      min(r.MaxInputTime, DefaultLimits.MaxInputTime),
		},
	}
}

func optionsFromRow(row models.PhpIni) IniOptions {
	fns, ok := parseDisableFunctions(row.DisableFunctions)
	if !ok {
		fns = append([]string(nil), DangerousFunctions...)
	}
	er := row.ErrorReporting
	if !validErrorReporting(er) {
		er = ErrorReportingProduction
	}
	return IniOptions{
		AllowURLFopen:    row.AllowURLFopen,
		DisplayErrors:    row.DisplayErrors,
		ErrorReporting:   er,
		DisableFunctions: fns,
		Limits: Limits{
			MemoryLimit:       row.MemoryLimit,
			PostMaxSize:       row.PostMaxSize,
			UploadMaxFilesize: row.UploadMaxFilesize,
			MaxExecutionTime:  row.MaxExecutionTime,
			MaxInputTime:      row.MaxInputTime,
		},
	}
}

func (o IniOptions) toRow(ref DomainRef) models.PhpIni {
	return models.PhpIni{
		AdminID:           ref.ClientID,
		DomainID:          ref.DomainID,
		DomainType:        ref.DomainType,
		DisableFunctions:  joinFunctions(o.DisableFunctions),
		AllowURLFopen:     o.AllowURLFopen,
		DisplayErrors:     o.DisplayErrors,
		ErrorReporting:    o.ErrorReporting,
		PostMaxSize:       o.PostMaxSize,
		UploadMaxFilesize: o.UploadMaxFilesize,
		MaxExecutionTime:  o.MaxExecutionTime,
		MaxInputTime:      o.MaxInputTime,
		MemoryLimit:       o.MemoryLimit,
	}
}

// LoadIniOptions loads the options stored for ref. A nil ref, or an entity
// without stored options, yields production defaults bounded by the reseller
// ceilings.
func (e *Engine) LoadIniOptions(ref *DomainRef) error {
	if err := e.require(StateClientLoaded); err != nil {
		return err
	}
	if ref != nil {
		if err := ref.validate(); err != nil {
			return err
		}
		row, found, err := e.findIniRow(*ref)
		if err != nil {
			return err
		}
		if found {
			e.options = optionsFromRow(row)
			e.isDefaultOptions = false
			e.advance(StateOptionsLoaded)
			return nil
		}
	}
	e.options = e.defaultIniOptions()
	e.isDefaultOptions = true
	e.advance(StateOptionsLoaded)
	return nil
}

func (e *Engine) findIniRow(ref DomainRef) (models.PhpIni, bool, error) {
	var row models.PhpIni
	res := e.db.Where("admin_id = ? AND domain_id = ? AND domain_type = ?", ref.ClientID, ref.DomainID, ref.DomainType).
		Limit(1).Find(&row)
	if res.Error != nil {
		return row, false, fmt.Errorf("load INI options of %s %d: %w", ref.DomainType, ref.DomainID, res.Error)
	}
	return row, res.RowsAffected > 0, nil
}

// IsDefaultIniOptions reports whether the loaded options are computed
// defaults rather than a stored row.
func (e *Engine) IsDefaultIniOptions() bool {
	return e.isDefaultOptions
}

// SetIniOption validates and applies one directive. Values the client may not
// set, or that exceed the reseller ceilings, are rejected.
func (e *Engine) SetIniOption(name Option, value string) (bool, error) {
	if err := e.require(StateOptionsLoaded); err != nil {
		return false, err
	}
	o := &e.options
	switch name {
	case OptAllowURLFopen, OptDisplayErrors:
		b, ok := parseFlag(value)
		if !ok || !e.clientHas(Permission(name)) {
			return e.rejected("options", string(name), value)
		}
		if name == OptAllowURLFopen {
			o.AllowURLFopen = b
		} else {
			o.DisplayErrors = b
		}
	case OptErrorReporting:
		if !validErrorReporting(value) || !e.clientHas(PermPHP) {
			return e.rejected("options", string(name), value)
		}
		o.ErrorReporting = value
	case OptDisableFunctions:
		fns, ok := parseDisableFunctions(value)
		if !ok || !e.acceptDisableFunctions(fns) {
			return e.rejected("options", string(name), value)
		}
		o.DisableFunctions = fns
	case OptMemoryLimit, OptPostMaxSize, OptUploadMaxFilesize, OptMaxExecutionTime, OptMaxInputTime:
		n, ok := parseLimit(value)
		ceiling, _ := e.reseller.Limits.field(string(name))
		if !ok || n > *ceiling || (name == OptUploadMaxFilesize && n > o.PostMaxSize) {
			return e.rejected("options", string(name), value)
		}
		field, _ := o.Limits.field(string(name))
		*field = n
		if name == OptPostMaxSize && o.UploadMaxFilesize > n {
			o.UploadMaxFilesize = n
		}
	default:
		return false, &InvalidFieldError{Layer: "INI option", Name: string(name)}
	}
	e.isDefaultOptions = false
	return true, nil
}

// acceptDisableFunctions checks a new disabled set against the client's
// disable_functions and mail permissions.
func (e *Engine) acceptDisableFunctions(fns []string) bool {
	if !e.clientHas(PermDisableFunctions) {
		return false
	}
	if !e.clientHas(PermMailFunction) && !slices.Contains(fns, "mail") {
		return false
	}
	if e.client.DisableFunctions == DisableFunctionsExec {
		return sameFunctionSet(withoutFunction(fns, "exec"), withoutFunction(e.options.DisableFunctions, "exec"))
	}
	return true
}

// GetIniOption returns the wire value of one directive.
func (e *Engine) GetIniOption(name Option) (string, error) {
	if err := e.require(StateOptionsLoaded); err != nil {
		return "", err
	}
	o := e.options
	switch name {
	case OptAllowURLFopen:
		return formatFlag(o.AllowURLFopen), nil
	case OptDisplayErrors:
		return formatFlag(o.DisplayErrors), nil
	case OptErrorReporting:
		return o.ErrorReporting, nil
	case OptDisableFunctions:
		return joinFunctions(o.DisableFunctions), nil
	}
	if field, ok := o.Limits.field(string(name)); ok {
		return strconv.Itoa(*field), nil
	}
	return "", &InvalidFieldError{Layer: "INI option", Name: string(name)}
}

// IniOptions returns a copy of the loaded options.
func (e *Engine) IniOptions() (IniOptions, error) {
	if err := e.require(StateOptionsLoaded); err != nil {
		return IniOptions{}, err
	}
	return e.options.clone(), nil
}

// SaveIniOptions stores the loaded options for ref. Writing values that
// differ from the stored row raises the provisioning signal.
func (e *Engine) SaveIniOptions(ref DomainRef) error {
	if err := e.require(StateOptionsLoaded); err != nil {
		return err
	}
	if err := ref.validate(); err != nil {
		return err
	}
	_, err := e.saveIniOptions(ref)
	return err
}

func (e *Engine) saveIniOptions(ref DomainRef) (bool, error) {
	current, found, err := e.findIniRow(ref)
	if err != nil {
		return false, err
	}
	desired := e.options.toRow(ref)
	if found {
		desired.ID = current.ID
		if desired == current {
			return false, nil
		}
		err = e.db.Save(&desired).Error
	} else {
		err = e.db.Create(&desired).Error
	}
	if err != nil {
		return false, fmt.Errorf("save INI options of %s %d: %w", ref.DomainType, ref.DomainID, err)
	}
	e.requestNeeded = true
	return true, nil
}
