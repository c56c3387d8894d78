package bot

import (
	"net/url"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

// Trigger phrases are matched as lower-cased substrings anywhere in a text
// message.
const (
	farewellTrigger = "เรสมาลาพี่ๆ"
	reserveTrigger  = "จองที่นั่ง"
)

const (
	welcomeGreetingText = "สวัสดีฮะ พี่ๆ นักท่องเที่ยวที่เพิ่งเข้ามา\nผมชื่อ Forest หรือเรียก Rest ก็ได้ฮะ ผมเป็นตัวแทนของ เพจเที่ยวกับเพื่อน ❤️"
	welcomeFormText     = "📌 พี่ๆกรอกข้อมูลสำคัญให้เรสหน่อยน้า ที่ลิงก์นี้ 👇\nhttps://forms.gle/gXcRn9nyWiSxEp8E7"
	welcomeImageURL     = "https://i.imgur.com/g8mt5OP.jpeg"

	farewellThanksText = "เรสมาลาพี่ๆ \nขอบคุณ❤️พี่ๆทุกท่านที่เลือกเดินทางกับเพจเที่ยวกับเพื่อน Journey with friends"
	farewellSocialText = "สุดท้ายขออนุญาตฝากช่องทาง ติดตามทริปสนุกๆได้อีกค้าบบ 🙏\nFacebook: https://www.facebook.com/share/18yHSFRJqu/\nTiktok: https://www.tiktok.com/@withfriends81\nIG: https://www.instagram.com/journeywithfriends.official"

	followWelcomeText = "สวัสดีฮะ ขอบคุณที่แอดเรสมาเป็นเพื่อนน้า 🌲\nสนใจทริปไหนทักมาถามเรสได้เลยฮะ"

	bookingInviteText = "จองที่นั่งของพี่ได้ที่ลิงก์นี้เลยฮะ 👇"
)

func welcomeMessages() []messaging_api.MessageInterface {
	return []messaging_api.MessageInterface{
		messaging_api.TextMessage{Text: welcomeGreetingText},
		messaging_api.TextMessage{Text: welcomeFormText},
		messaging_api.ImageMessage{
			OriginalContentUrl: welcomeImageURL,
			PreviewImageUrl:    welcomeImageURL,
		},
	}
}

func farewellMessages() []messaging_api.MessageInterface {
	return []messaging_api.MessageInterface{
		messaging_api.TextMessage{Text: farewellThanksText},
		messaging_api.TextMessage{Text: farewellSocialText},
	}
}

func followMessages() []messaging_api.MessageInterface {
	return []messaging_api.MessageInterface{
		messaging_api.TextMessage{Text: followWelcomeText},
	}
}

// bookingLinkMessages builds the deep link into the booking page for the
// chat context the request came from.
func bookingLinkMessages(pageURL, contextID string) []messaging_api.MessageInterface {
	link := pageURL + "?groupId=" + url.QueryEscape(contextID)
	return []messaging_api.MessageInterface{
		messaging_api.TextMessage{Text: bookingInviteText + "\n" + link},
	}
}
