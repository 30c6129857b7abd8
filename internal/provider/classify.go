package provider

import "strings"

type rule struct {
	tag      Tag
	patterns []string
}

// classifierRules is evaluated top to bottom; the first hit wins, so
// "openai.azure.com" resolves to OpenAI.
var classifierRules = []rule{
	{OpenAI, []string{"openai.com", "api.openai", "openai.azure.com"}},
	{Azure, []string{"azure.com", "api.cognitive.microsoft", "openai.azure.com"}},
	{Baidu, []string{"baidu.com", "ernie", "wenxin", "aip.baidubce.com", "yiyan", "文心", "千帆"}},
	{Zhipu, []string{"zhipu", "chatglm", "bigmodel.cn", "智谱", "glm"}},
	{Aliyun, []string{"aliyun", "dashscope", "tongyi", "ecs.aliyuncs.com", "通义", "千问", "qwen"}},
	{Volcengine, []string{"volce", "volcengine", "ark.cn-beijing", "bytedance", "火山", "字节", "豆包"}},
	{Tencent, []string{"tencent", "hunyuan", "腾讯", "cloud.tencent.com", "混元"}},
	{Moonshot, []string{"moonshot", "月之暗面", "kimi"}},
	{DeepSeek, []string{"deepseek", "深度求索"}},
	{ZeroOneAI, []string{"01.ai", "零一万物", "yi-"}},
}

var openAICompatiblePaths = []string{"/v1/chat/completions", "/api/v1/chat/completions"}

// Classify maps a raw endpoint URL to a provider tag. It never fails.
func Classify(url string) Tag {
	lowered := strings.ToLower(url)

	for _, r := range classifierRules {
		for _, pattern := range r.patterns {
			if strings.Contains(lowered, pattern) {
				return r.tag
			}
		}
	}

	// path hints are case-sensitive; only host and brand patterns fold case
	for _, path := range openAICompatiblePaths {
		if strings.Contains(url, path) {
			return OpenAICompatible
		}
	}

	return Standard
}
