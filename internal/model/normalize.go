package model

import "strings"

// legacyTypeSpellings maps response-type spellings found in older checklists
// (mostly Portuguese, some free-text variants from early imports) to the
// canonical enum. Canonical spellings map to themselves.
var legacyTypeSpellings = map[string]ResponseType{
	"yes_no":           TypeYesNo,
	"sim_nao":          TypeYesNo,
	"sim/não":          TypeYesNo,
	"sim/nao":          TypeYesNo,
	"boolean":          TypeYesNo,
	"text":             TypeText,
	"texto":            TypeText,
	"numeric":          TypeNumeric,
	"numerico":         TypeNumeric,
	"número":           TypeNumeric,
	"number":           TypeNumeric,
	"multiple_choice":  TypeMultipleChoice,
	"multipla_escolha": TypeMultipleChoice,
	"múltipla escolha": TypeMultipleChoice,
	"photo":            TypePhoto,
	"foto":             TypePhoto,
	"signature":        TypeSignature,
	"assinatura":       TypeSignature,
	"date":             TypeDate,
	"data":             TypeDate,
	"time":             TypeTime,
	"hora":             TypeTime,
	"dropdown":         TypeDropdown,
	"lista_suspensa":   TypeDropdown,
	"checkboxes":       TypeCheckboxes,
	"caixas_selecao":   TypeCheckboxes,
	"paragraph":        TypeParagraph,
	"paragrafo":        TypeParagraph,
	"parágrafo":        TypeParagraph,
}

// NormalizeResponseType resolves a stored response-type spelling to the
// canonical enum. Unknown spellings fall back to text so a legacy question
// stays answerable.
func NormalizeResponseType(raw string) ResponseType {
	key := strings.ToLower(strings.TrimSpace(raw))
	if t, ok := legacyTypeSpellings[key]; ok {
		return t
	}
	return TypeText
}

// ValidResponseType reports whether t is a member of the canonical set.
func ValidResponseType(t ResponseType) bool {
	switch t {
	case TypeYesNo, TypeText, TypeNumeric, TypeMultipleChoice, TypePhoto,
		TypeSignature, TypeDate, TypeTime, TypeDropdown, TypeCheckboxes,
		TypeParagraph:
		return true
	}
	return false
}

// HasOptions reports whether the response type carries an authored option list.
func (t ResponseType) HasOptions() bool {
	switch t {
	case TypeMultipleChoice, TypeDropdown, TypeCheckboxes:
		return true
	}
	return false
}

// NormalizeValue reduces a raw answer to its comparable form for visibility
// checks. Yes/no answers accept a few spellings from older clients; anything
// else passes through trimmed.
func NormalizeValue(t ResponseType, raw string) string {
	v := strings.TrimSpace(raw)
	if t != TypeYesNo {
		return v
	}
	switch strings.ToLower(v) {
	case "sim", "yes", "true", "s":
		return AnswerYes
	case "não", "nao", "no", "false", "n":
		return AnswerNo
	}
	return v
}
