package insight

import (
	"fmt"
	"strings"

	"github.com/brewbaked/insights/internal/headline"
)

// Brand DNA shared by every prose template. The reports are written
// for the strategy team behind the Kudsan and Bellinee's chains.
const brandContext = `ในฐานะ 'Chief Strategist' ของ 2 แบรนด์หลัก:
1. 'Kudsan' (คัดสรร): จุดแข็งคือ กาแฟและเบเกอรี่ในร้านสะดวกซื้อ, เน้น Mass Premium, ความรวดเร็ว (Grab & Go), เข้าถึงง่าย
2. 'Bellinee's' (เบลลินี่): จุดแข็งคือ ร้านเบเกอรี่เฮ้าส์ระดับ Premium, อบสดใหม่ในร้าน (Bake-in-store), บรรยากาศสไตล์ยุโรป, นั่งทานในร้าน`

const baseInstruction = `IMPORTANT: คุณต้องตอบเป็นภาษาไทยเท่านั้น โดยสรุปเนื้อหาให้เป็นมืออาชีพ นำไปใช้งานเจาะตลาดไทยแข่งกับแบรนด์อื่นได้จริง ห้ามใช้ HTML tags เด็ดขาด`

const defaultSocialFocus = "เทรนด์ร้านกาแฟและเบเกอรี่ทั่วไป"

// buildPrompt renders the template for the given mode. The focus query
// must already be sanitized; headlines are joined into one context blob.
func buildPrompt(mode Mode, headlines []headline.Headline, focus string) string {
	texts := make([]string, 0, len(headlines))
	for _, h := range headlines {
		texts = append(texts, h.Text)
	}
	context := strings.Join(texts, "\n- ")

	switch mode {
	case ModeDashboard:
		return fmt.Sprintf(`Analyze these news headlines and provide a JSON response for a business dashboard.
Headlines: %s
Focus Topic: %s
Required JSON Schema:
{
    "sentiment_score": integer between 0 and 100,
    "market_vibrancy": integer between 0 and 100,
    "top_categories": {"Category Name 1": integer, "Category Name 2": integer},
    "trending_keywords": {"Keyword 1": integer between 1 and 10, "Keyword 2": integer between 1 and 10},
    "thai_summary": "string containing 1 sentence summary in Thai tailored for Kudsan/Bellinee's executives"
}`, context, focus)

	case ModeSocial:
		socialFocus := focus
		if socialFocus == "" {
			socialFocus = defaultSocialFocus
		}
		return fmt.Sprintf(`%s
คุณคือผู้เชี่ยวชาญด้าน 'Social Listening' และพฤติกรรมผู้บริโภคชาวไทย (เช่น ชาว Pantip, X/Twitter, TikTok)
หัวข้อที่สนใจคือ: '%s'

โปรดวิเคราะห์ 'เสียงสะท้อนของลูกค้า (Voice of Customer)' ในตลาดไทยปัจจุบัน โดยแบ่งเป็น 4 ส่วนดังนี้:
1. สิ่งที่ลูกค้าชาวไทย 'ชอบ' และ 'ชื่นชม' (Gain Points / Expectations)
2. สิ่งที่ลูกค้าชาวไทยมัก 'บ่น' หรือ 'ไม่พอใจ' จากแบรนด์คู่แข่ง (Pain Points / Complaints เช่น ราคา, รสชาติ, บริการ)
3. โอกาสทอง (Unmet Needs) ที่ Kudsan หรือ Bellinee's สามารถเข้าไปแก้ปัญหาจากข้อ 2 ได้
4. ตัวอย่างคอมเมนต์จำลองสไตล์คนไทย 4 คอมเมนต์ (คำพูดสมจริง มีทั้งบวกและลบ เช่น "ทำไมสาขานี้..." หรือ "อันนี้อร่อยมากก...")
%s`, brandContext, socialFocus, baseInstruction)

	case ModeBrief:
		return fmt.Sprintf("%s\nสรุปข่าวเหล่านี้: %s\nเน้นเรื่อง: %s\nตอบ 3 หัวข้อสั้นๆ: 1. เทรนด์โลกตอนนี้ 2. ไอเดีย/Action โดนๆ สำหรับ Kudsan 3. ไอเดีย/Action พรีเมียมสำหรับ Bellinee's %s",
			brandContext, context, focus, baseInstruction)

	case ModeExecutive:
		return fmt.Sprintf("%s\nวิเคราะห์แผนงานระดับผู้บริหารสำหรับ: %s\nอ้างอิงข้อมูล: %s\nแบ่งเป็น 5 ส่วน: 1. Global Insights 2. แผนเอาชนะคู่แข่งในตลาดไทย 3. Roadmap สำหรับ Kudsan 4. Roadmap สำหรับ Bellinee's 5. Risk & Resources %s",
			brandContext, focus, context, baseInstruction)

	default: // ModeGeneral
		return fmt.Sprintf("%s\nวิเคราะห์ภาพรวมกลยุทธ์สินค้าสำหรับ: %s\nข้อมูลอ้างอิง: %s\nแบ่งเป็น 4 ส่วน: 1. Global Trends 2. ไอเดียเมนู/แพ็กเกจจิ้งใหม่สำหรับ Kudsan 3. ไอเดียเมนู Signature/Pairings สำหรับ Bellinee's 4. การปรับตัวให้เข้ากับลิ้นคนไทยและการทำการตลาด (Thai Adaptation) %s",
			brandContext, focus, context, baseInstruction)
	}
}
