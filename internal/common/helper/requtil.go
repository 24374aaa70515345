package helper

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	beegocontext "github.com/beego/beego/v2/server/web/context"
)

// IsJSONContentType 判断是否为 JSON 请求
func IsJSONContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	return strings.Contains(ct, "json")
}

// 默认输入保护参数
const (
	defaultJSONMaxBytes int64         = 64 << 10 // 64KB
	defaultParseTimeout time.Duration = 1 * time.Second
)

type deadlineReader struct {
	r        io.Reader
	deadline time.Time
}

func (dr *deadlineReader) Read(p []byte) (int, error) {
	if time.Now().After(dr.deadline) {
		return 0, fmt.Errorf("read timeout")
	}
	return dr.r.Read(p)
}

// jsonBodyReader 在 JSON 分支下为请求体增加大小限制与解析超时保护
func jsonBodyReader(ctx *beegocontext.Context) io.Reader {
	lr := io.LimitReader(ctx.Request.Body, defaultJSONMaxBytes)
	return &deadlineReader{r: lr, deadline: time.Now().Add(defaultParseTimeout)}
}

// GetTraceID 统一提取 trace_id：优先从中间件注入的数据取，其次从常见请求头降级
func GetTraceID(ctx *beegocontext.Context) string {
	if v := ctx.Input.GetData("trace_id"); v != nil {
		return fmt.Sprint(v)
	}
	if h := strings.TrimSpace(ctx.Input.Header("X-Trace-ID")); h != "" {
		return h
	}
	if h := strings.TrimSpace(ctx.Input.Header("Trace-Id")); h != "" {
		return h
	}
	return ""
}

// parseByContentType 按 Content-Type 选择解析函数；空请求体按表单/查询参数处理
func parseByContentType[T any](ctx *beegocontext.Context,
	jsonParser func(io.Reader) (T, bool, string),
	formParser func(*beegocontext.Context) (T, bool, string),
) (T, bool, string) {
	ct := ctx.Input.Header("Content-Type")
	if IsJSONContentType(ct) && ctx.Request.Body != nil {
		return jsonParser(jsonBodyReader(ctx))
	}
	return formParser(ctx)
}

// decodeJSON 空请求体视为空对象
func decodeJSON(r io.Reader, out any) error {
	err := json.NewDecoder(r).Decode(out)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// -------- Draw trigger --------

// TriggerParsed 手动开奖入参；WindowKey 为空表示当前窗口
type TriggerParsed struct {
	WindowKey string `json:"window_key"`
}

func ParseTriggerFromJSON(r io.Reader) (TriggerParsed, bool, string) {
	var out TriggerParsed
	if err := decodeJSON(r, &out); err != nil {
		return TriggerParsed{}, false, "invalid json body"
	}
	out.WindowKey = strings.TrimSpace(out.WindowKey)
	return out, true, ""
}

func ParseTriggerFromForm(ctx *beegocontext.Context) (TriggerParsed, bool, string) {
	return TriggerParsed{WindowKey: strings.TrimSpace(ctx.Input.Query("window_key"))}, true, ""
}

// ParseAndValidateTrigger 按 Content-Type 自动解析并做统一校验
func ParseAndValidateTrigger(ctx *beegocontext.Context) (TriggerParsed, bool, string) {
	out, ok, msg := parseByContentType(ctx, ParseTriggerFromJSON, ParseTriggerFromForm)
	if !ok {
		return TriggerParsed{}, false, msg
	}
	// 额外长度保护
	if len(out.WindowKey) > 32 {
		return TriggerParsed{}, false, "window_key too long"
	}
	return out, true, ""
}

// -------- Ticket cleanup --------

// CleanupParsed 票清理入参；零值表示使用配置默认值
type CleanupParsed struct {
	RetentionHours int `json:"retention_hours"`
	Batch          int `json:"batch"`
}

func ParseCleanupFromJSON(r io.Reader) (CleanupParsed, bool, string) {
	var out CleanupParsed
	if err := decodeJSON(r, &out); err != nil {
		return CleanupParsed{}, false, "invalid json body"
	}
	return out, true, ""
}

func ParseCleanupFromForm(ctx *beegocontext.Context) (CleanupParsed, bool, string) {
	var out CleanupParsed
	if s := strings.TrimSpace(ctx.Input.Query("retention_hours")); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return CleanupParsed{}, false, "retention_hours must be integer"
		}
		out.RetentionHours = n
	}
	if s := strings.TrimSpace(ctx.Input.Query("batch")); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return CleanupParsed{}, false, "batch must be integer"
		}
		out.Batch = n
	}
	return out, true, ""
}

// ParseAndValidateCleanup batch 允许 0..500，retention_hours 不可为负
func ParseAndValidateCleanup(ctx *beegocontext.Context) (CleanupParsed, bool, string) {
	out, ok, msg := parseByContentType(ctx, ParseCleanupFromJSON, ParseCleanupFromForm)
	if !ok {
		return CleanupParsed{}, false, msg
	}
	if out.RetentionHours < 0 {
		return CleanupParsed{}, false, "retention_hours must not be negative"
	}
	if out.Batch < 0 || out.Batch > 500 {
		return CleanupParsed{}, false, "batch must be within 0..500"
	}
	return out, true, ""
}

// QueryInt 读取整数查询参数，缺失或非法时返回 def
func QueryInt(ctx *beegocontext.Context, key string, def int) int {
	s := strings.TrimSpace(ctx.Input.Query(key))
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
