package i18n

// Language represents a supported language.
type Language string

const (
	// English is the English language.
	English Language = "en"
	// TraditionalChinese is Chinese in traditional script as written in Taiwan.
	TraditionalChinese Language = "zh-TW"
)

// DefaultLanguage is the fallback language.
const DefaultLanguage = Language(TraditionalChinese)

// translations maps language codes to translation keys and their values.
var translations = map[Language]map[string]string{
	English: {
		"category.Chest":        "Chest",
		"category.Back":         "Back",
		"category.Shoulder":     "Shoulders",
		"category.Legs":         "Legs",
		"category.Arms":         "Arms",
		"category.Custom":       "Custom",
		"report.title":          "Training plan",
		"report.empty":          "No exercise has periodization enabled.",
		"report.col.exercise":   "Exercise",
		"report.col.cycle":      "Cycle",
		"report.col.target":     "Target",
		"report.col.progress":   "Progression",
		"report.progress.hold":  "Hold",
		"report.progress.ahead": "Next cycle",
		"stats.title":           "Daily summary",
		"stats.kcal":            "Energy",
		"stats.time":            "Training time",
		"stats.volume":          "Volume",
		"stats.bmr":             "BMR",
		"cli.no-recommendation": "Periodization is not enabled for this exercise.",
		"cli.advanced":          "Advanced to the next cycle.",
		"cli.not-advanced":      "Nothing to advance today.",
		"language.name.en":      "English",
		"language.name.zh-TW":   "繁體中文",
	},
	TraditionalChinese: {
		"category.Chest":        "胸",
		"category.Back":         "背",
		"category.Shoulder":     "肩",
		"category.Legs":         "腿",
		"category.Arms":         "手臂",
		"category.Custom":       "自訂",
		"report.title":          "訓練計畫",
		"report.empty":          "尚無啟用週期訓練的動作。",
		"report.col.exercise":   "動作",
		"report.col.cycle":      "週期",
		"report.col.target":     "目標",
		"report.col.progress":   "進度",
		"report.progress.hold":  "維持",
		"report.progress.ahead": "下個週期加重",
		"stats.title":           "今日統計",
		"stats.kcal":            "消耗熱量",
		"stats.time":            "訓練時間",
		"stats.volume":          "訓練量",
		"stats.bmr":             "基礎代謝",
		"cli.no-recommendation": "此動作尚未啟用週期訓練。",
		"cli.advanced":          "已進入下個週期。",
		"cli.not-advanced":      "今天沒有需要推進的週期。",
		"language.name.en":      "English",
		"language.name.zh-TW":   "繁體中文",
	},
}

// SupportedLanguages returns a list of all supported languages.
func SupportedLanguages() []Language {
	return []Language{TraditionalChinese, English}
}

// IsSupported checks if a language is supported.
func IsSupported(lang Language) bool {
	_, ok := translations[lang]
	return ok
}

// Translate returns the translation for the given key in the specified language.
// If the key is not found, it falls back to the default language.
// If still not found, it returns the key itself.
func Translate(lang Language, key string) string {
	if langTranslations, ok := translations[lang]; ok {
		if translation, ok := langTranslations[key]; ok {
			return translation
		}
	}

	if lang != DefaultLanguage {
		if translation, ok := translations[DefaultLanguage][key]; ok {
			return translation
		}
	}

	return key
}
