package i18n

import "strings"

// Translator retrieves localized messages for error codes.
// data provides optional values substituted into "{key}" placeholders (for
// example "name" or "expected").
type Translator interface {
	Message(code string, data map[string]string) string
}

// dictTranslator is the built-in dictionary-based Translator.
type dictTranslator struct{ lang string }

var messagesEN = map[string]string{
	"parse_error":           "parse error",
	"unexpected_token":      "unexpected {got}, expected {expected}",
	"wrong_root":            "root element {got} does not match {expected}",
	"unknown_key":           "unknown property {name}",
	"unknown_element":       "unknown element {name}",
	"duplicate_key":         "duplicate key",
	"duplicate_occurrence":  "{name} may occur at most once",
	"out_of_order":          "{name} must come before {after}",
	"required":              "required value missing for {name}",
	"invalid_format":        "invalid {type} value {value}",
	"invalid_type":          "invalid type",
	"discriminator_missing": "discriminator {name} missing",
	"discriminator_unknown": "no alternative named {name}",
	"hook_failed":           "lifecycle hook failed",
	"io_error":              "i/o error",
	"truncated":             "truncated",
}

var messagesJA = map[string]string{
	"parse_error":           "解析エラー",
	"unexpected_token":      "{expected} が必要ですが {got} が見つかりました",
	"wrong_root":            "ルート要素 {got} は {expected} と一致しません",
	"unknown_key":           "未知のプロパティです: {name}",
	"unknown_element":       "未知の要素です: {name}",
	"duplicate_key":         "キーが重複しています",
	"duplicate_occurrence":  "{name} は一度しか出現できません",
	"out_of_order":          "{name} は {after} より前に置く必要があります",
	"required":              "{name} の必須値が不足しています",
	"invalid_format":        "{type} として不正な値です: {value}",
	"invalid_type":          "型が不正です",
	"discriminator_missing": "判別子 {name} がありません",
	"discriminator_unknown": "{name} という選択肢はありません",
	"hook_failed":           "ライフサイクルフックが失敗しました",
	"io_error":              "入出力エラー",
	"truncated":             "打ち切られました",
}

func (t dictTranslator) Message(code string, data map[string]string) string {
	dict := messagesEN
	if t.lang == "ja" {
		dict = messagesJA
	}
	msg, ok := dict[code]
	if !ok {
		return code
	}
	if len(data) == 0 || !strings.Contains(msg, "{") {
		return msg
	}
	pairs := make([]string, 0, len(data)*2)
	for k, v := range data {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(msg)
}

var currentTranslator Translator = dictTranslator{lang: "en"}

// SetLanguage switches the built-in Translator language ("en"/"ja").
func SetLanguage(lang string) {
	if lang != "ja" {
		lang = "en"
	}
	currentTranslator = dictTranslator{lang: lang}
}

// SetTranslator replaces the Translator implementation (not limited to the
// dictionary version).
func SetTranslator(tr Translator) {
	if tr == nil {
		currentTranslator = dictTranslator{lang: "en"}
		return
	}
	currentTranslator = tr
}

// T fetches a message for the given code using the current Translator.
func T(code string, data map[string]string) string { return currentTranslator.Message(code, data) }
