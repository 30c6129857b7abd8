package provider_test

import (
	"testing"

	"github.com/nulzo/vision-grader/internal/payload"
	"github.com/nulzo/vision-grader/internal/provider"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		url  string
		want provider.Tag
	}{
		{"https://api.openai.com/v1", provider.OpenAI},
		{"https://myres.openai.azure.com/openai/deployments/x", provider.OpenAI},
		{"https://myres.cognitiveservices.azure.com", provider.Azure},
		{"https://qianfan.baidubce.com/v2", provider.Standard},
		{"https://aip.baidubce.com/rpc/2.0/ai_custom/v1/wenxinworkshop", provider.Baidu},
		{"https://open.bigmodel.cn/api/paas/v4", provider.Zhipu},
		{"https://dashscope.aliyuncs.com/compatible-mode/v1", provider.Aliyun},
		{"https://ark.cn-beijing.volces.com/api/v3", provider.Volcengine},
		{"https://api.hunyuan.cloud.tencent.com/v1", provider.Tencent},
		{"https://api.moonshot.cn/v1", provider.Moonshot},
		{"https://api.deepseek.com", provider.DeepSeek},
		{"https://api.01.ai/v1", provider.ZeroOneAI},
		{"https://HTTPS://API.DEEPSEEK.COM", provider.DeepSeek},
		{"https://proxy.example.com/通义/v1", provider.Aliyun},
		{"https://gateway.example.com/v1/chat/completions", provider.OpenAICompatible},
		{"https://gateway.example.com/api/v1/chat/completions", provider.OpenAICompatible},
		{"https://example.com/api", provider.Standard},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, provider.Classify(tt.url))
		})
	}
}

func TestClassify_PathHintIsCaseSensitive(t *testing.T) {
	assert.Equal(t, provider.Standard, provider.Classify("https://gateway.example.com/V1/Chat/Completions"))
	assert.Equal(t, provider.OpenAICompatible, provider.Classify("https://GATEWAY.EXAMPLE.COM/v1/chat/completions"))
	assert.Equal(t, provider.Moonshot, provider.Classify("https://API.MOONSHOT.CN/V1/Chat/Completions"))
}

func TestClassify_DeclarationOrderBreaksTies(t *testing.T) {
	// matches both zhipu ("glm") and aliyun ("qwen"); zhipu is declared first
	assert.Equal(t, provider.Zhipu, provider.Classify("https://host.example.com/glm-qwen/v1"))
}

func TestCandidates(t *testing.T) {
	tests := []struct {
		name string
		url  string
		tag  provider.Tag
		want []string
	}{
		{
			name: "standard gets v1 suffix",
			url:  "https://example.com/api",
			tag:  provider.Standard,
			want: []string{"https://example.com/api", "https://example.com/api/v1/chat/completions"},
		},
		{
			name: "generic suffix provider",
			url:  "https://dashscope.aliyuncs.com/compatible-mode/v1/",
			tag:  provider.Aliyun,
			want: []string{"https://dashscope.aliyuncs.com/compatible-mode/v1", "https://dashscope.aliyuncs.com/compatible-mode/v1/chat/completions"},
		},
		{
			name: "volcengine uses generic suffix",
			url:  " https://ark.cn-beijing.volces.com/api/v3 ",
			tag:  provider.Volcengine,
			want: []string{"https://ark.cn-beijing.volces.com/api/v3", "https://ark.cn-beijing.volces.com/api/v3/chat/completions"},
		},
		{
			name: "already a full endpoint",
			url:  "https://api.openai.com/v1/chat/completions//",
			tag:  provider.OpenAI,
			want: []string{"https://api.openai.com/v1/chat/completions"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := provider.Candidates(tt.url, tt.tag)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLookup(t *testing.T) {
	azure := provider.Lookup(provider.Azure)
	assert.Equal(t, provider.AuthAPIKey, azure.AuthMethod)
	assert.Equal(t, "api-key", azure.AuthHeader)

	volc := provider.Lookup(provider.Volcengine)
	assert.Equal(t, payload.TemplateVisionNoThinking, volc.TemplateType)

	fallback := provider.Lookup(provider.Standard)
	assert.Equal(t, provider.Standard, fallback.Tag)
	assert.Equal(t, payload.TemplateOpenAIVision, fallback.TemplateType)
	assert.Equal(t, provider.AuthBearer, fallback.AuthMethod)
	assert.Equal(t, "Authorization", fallback.AuthHeader)
}

func TestProfileHeaders(t *testing.T) {
	bearer := provider.Lookup(provider.OpenAI).Headers("sk-1")
	assert.Equal(t, map[string]string{
		"Content-Type":  "application/json",
		"Authorization": "Bearer sk-1",
	}, bearer)

	raw := provider.Lookup(provider.Azure).Headers("az-1")
	assert.Equal(t, "az-1", raw["api-key"])
	assert.NotContains(t, raw, "Authorization")

	extra := provider.AuthHeaders(provider.AuthBearer, "Authorization", "k", map[string]string{"X-Org": "o"})
	assert.Equal(t, "o", extra["X-Org"])
	assert.Equal(t, "Bearer k", extra["Authorization"])

	none := provider.AuthHeaders("oauth", "Authorization", "k", nil)
	assert.Equal(t, map[string]string{"Content-Type": "application/json"}, none)
}
