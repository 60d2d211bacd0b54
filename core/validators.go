package core

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/libreta/backend/core/grading"
)

var (
	// custom validation tags & texts
	alphaNumUnderTag   = "alphanum_"
	alphaNumUnderText  = "only alphanumeric characters and underscores are allowed"
	alphaNumUnderRegex = regexp.MustCompile(`^[\w\s]+$`)

	notBlankTag  = "notblank"
	notBlankText = "this field cannot be blank"

	areaTag  = "area"
	areaText = "unknown subject area"

	bimesterTag  = "bimester"
	bimesterText = "bimester must be between 1 and 4"

	dniTag   = "dni"
	dniText  = "enrollment id must be an 8 digit DNI"
	dniRegex = regexp.MustCompile(`^[0-9]{8}$`)

	sectionTag   = "section"
	sectionText  = "section must be a single letter"
	sectionRegex = regexp.MustCompile(`^[A-Z]$`)

	requiredTag     = "required"
	requiredWithTag = "required_with"
	requiredText    = "this field is required"
)

// NewTranslator returns the english translator used for validation messages.
func NewTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

// InitValidators instantiates the validator for use.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// register custom validators
	_ = validate.RegisterValidation(alphaNumUnderTag, alphaNumUnderValidation)
	RegisterCustomTranslation(validate, translator, alphaNumUnderTag, alphaNumUnderText)

	_ = validate.RegisterValidation(notBlankTag, validators.NotBlank)
	RegisterCustomTranslation(validate, translator, notBlankTag, notBlankText)

	_ = validate.RegisterValidation(areaTag, areaValidation)
	RegisterCustomTranslation(validate, translator, areaTag, areaText)

	_ = validate.RegisterValidation(bimesterTag, bimesterValidation)
	RegisterCustomTranslation(validate, translator, bimesterTag, bimesterText)

	_ = validate.RegisterValidation(dniTag, dniValidation)
	RegisterCustomTranslation(validate, translator, dniTag, dniText)

	_ = validate.RegisterValidation(sectionTag, sectionValidation)
	RegisterCustomTranslation(validate, translator, sectionTag, sectionText)

	RegisterCustomTranslation(validate, translator, requiredTag, requiredText, true)
	RegisterCustomTranslation(validate, translator, requiredWithTag, requiredText, true)
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// TranslateErrors maps every failing field (by its json name) to its translated message.
func TranslateErrors(errs validator.ValidationErrors, translator ut.Translator) map[string]string {
	fldErrs := make(map[string]string, len(errs))
	for _, vErr := range errs {
		fldErrs[vErr.Field()] = vErr.Translate(translator)
	}
	return fldErrs
}

// Custom Global Validators

// alphaNumUnderValidation only allows alphanumeric characters and underscores.
func alphaNumUnderValidation(fl validator.FieldLevel) bool {
	return alphaNumUnderRegex.MatchString(fl.Field().String())
}

// areaValidation accepts the codes of the shipped curriculum.
func areaValidation(fl validator.FieldLevel) bool {
	_, err := grading.DefaultCurriculum().Area(fl.Field().String())
	return err == nil
}

func bimesterValidation(fl validator.FieldLevel) bool {
	return grading.ValidateBimester(int(fl.Field().Int())) == nil
}

func dniValidation(fl validator.FieldLevel) bool {
	return dniRegex.MatchString(fl.Field().String())
}

func sectionValidation(fl validator.FieldLevel) bool {
	return sectionRegex.MatchString(fl.Field().String())
}
