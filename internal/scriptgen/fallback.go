package scriptgen

import (
	"fmt"
	"strings"
)

// DemoScript produces a short stand-in script when generation is unavailable.
// The job completes in degraded form with this narration instead of failing.
func DemoScript(title, language string) string {
	subject := strings.TrimSpace(title)
	if subject == "" {
		subject = "bu proje"
	}
	if strings.HasPrefix(strings.ToLower(language), "tr") {
		return fmt.Sprintf(`[00:00]
Merhaba! Bu videoda %s projesini tanıtacağız.

[00:15]
Bu, otomatik olarak oluşturulmuş kısa bir tanıtım metnidir. Projenin öne çıkan
özelliklerini ve nasıl kullanılacağını ayrıntılı anlatmak için tam metin
üretimi şu anda kullanılamıyor.

[00:35]
İzlediğiniz için teşekkürler. Daha fazla bilgi için proje sayfasını ziyaret
edebilirsiniz.`, subject)
	}
	return fmt.Sprintf(`[00:00]
Hello! In this video we introduce %s.

[00:15]
This is an automatically generated placeholder narration. Full script
generation was unavailable, so this short summary stands in for the detailed
walkthrough.

[00:35]
Thanks for watching. Visit the project page to learn more.`, subject)
}
