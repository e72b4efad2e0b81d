package i18n

const (
	LangEnglish = "en"
	LangPersian = "fa"

	// DefaultLang is used when a user has no choice recorded or a key is missing.
	DefaultLang = LangEnglish
)

// SelectLanguagePrompt is shown before the user picks a language, so it is bilingual.
const SelectLanguagePrompt = "Please select your language / لطفا زبان خود را انتخاب کنید"

var builtin = map[string]map[string]string{
	LangEnglish: {
		"select_language":       SelectLanguagePrompt,
		"hello":                 "Hello {name}! 👋",
		"already_member":        "You're already a member of all channels! 🎉",
		"send_link":             "Send me a SoundCloud link to download the track.",
		"join_channel_first":    "To use this bot, you need to join our channel(s) first.",
		"join_and_click":        "Please join the channel(s) below and then click 'I Joined'.",
		"join_channel":          "Join {name}",
		"i_joined":              "✅ I Joined",
		"verified":              "Great! ✅ You're verified! You can now use the bot.",
		"not_joined":            "❌ You haven't joined all required channels yet.",
		"join_first_then_click": "Please join all the channels first and then click 'I Joined'.",
		"need_join":             "❌ You need to join the required channel(s) to use this bot.",
		"invalid_link":          "Please send me a valid SoundCloud link.",
		"link_example":          "Example: https://soundcloud.com/artist/track-name",
		"downloading":           "⏳ Downloading track... Please wait.",
		"download_failed":       "❌ Failed to download the track.",
		"link_check":            "Please make sure the link is valid and the track is publicly available.",
		"success":               "✅ Track downloaded and sent successfully!",
		"send_failed":           "❌ Failed to send the audio file.",
		"downloaded_not_sent":   "The file was downloaded but couldn't be sent. Please try again.",
		"error_occurred":        "❌ An error occurred while processing your request.",
		"try_again":             "Please try again later or check if the link is valid.",
		"help":                  "Send me a SoundCloud link and I'll reply with the audio file.\n\n/start - restart the bot\n/help - show this message",
	},
	LangPersian: {
		"select_language":       "لطفا زبان خود را انتخاب کنید / Please select your language",
		"hello":                 "سلام {name}! 👋",
		"already_member":        "شما قبلاً عضو همه کانال‌ها هستید! 🎉",
		"send_link":             "لینک SoundCloud را برای دانلود آهنگ ارسال کنید.",
		"join_channel_first":    "برای استفاده از این ربات، ابتدا باید به کانال‌های ما بپیوندید.",
		"join_and_click":        "لطفاً به کانال‌های زیر بپیوندید و سپس دکمه \"من پیوستم\" را کلیک کنید.",
		"join_channel":          "عضویت در {name}",
		"i_joined":              "✅ من پیوستم",
		"verified":              "عالی! ✅ شما تأیید شدید! اکنون می‌توانید از ربات استفاده کنید.",
		"not_joined":            "❌ هنوز به همه کانال‌های مورد نیاز نپیوسته‌اید.",
		"join_first_then_click": "لطفاً ابتدا به همه کانال‌ها بپیوندید و سپس دکمه \"من پیوستم\" را کلیک کنید.",
		"need_join":             "❌ برای استفاده از این ربات باید ابتدا به کانال‌ها بپیوندید.",
		"invalid_link":          "لطفاً یک لینک معتبر SoundCloud ارسال کنید.",
		"link_example":          "مثال: https://soundcloud.com/artist/track-name",
		"downloading":           "⏳ در حال دانلود آهنگ... لطفاً صبر کنید.",
		"download_failed":       "❌ دانلود آهنگ ناموفق بود.",
		"link_check":            "لطفاً مطمئن شوید که لینک معتبر است و آهنگ به صورت عمومی در دسترس است.",
		"success":               "✅ آهنگ با موفقیت دانلود و ارسال شد!",
		"send_failed":           "❌ ارسال فایل صوتی ناموفق بود.",
		"downloaded_not_sent":   "فایل دانلود شد اما نتوانست ارسال شود. لطفاً دوباره تلاش کنید.",
		"error_occurred":        "❌ خطایی در پردازش درخواست شما رخ داد.",
		"try_again":             "لطفاً بعداً دوباره تلاش کنید یا بررسی کنید که لینک معتبر است.",
	},
}
