// app/gateway/internal/ingest/grafana.go
package ingest

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lk2023060901/logstream/pkg/stream"
)

// GrafanaPayload Grafana Webhook 的 JSON 格式
// 参考: https://grafana.com/docs/grafana/latest/alerting/manage-notifications/webhook-notifier/
type GrafanaPayload struct {
	Receiver          string            `json:"receiver"`
	Status            string            `json:"status"`
	Alerts            []GrafanaAlert    `json:"alerts"`
	GroupLabels       map[string]string `json:"groupLabels"`
	CommonLabels      map[string]string `json:"commonLabels"`
	CommonAnnotations map[string]string `json:"commonAnnotations"`
	ExternalURL       string            `json:"externalURL"`
	Version           string            `json:"version"`
	GroupKey          string            `json:"groupKey"`
	TruncatedAlerts   int               `json:"truncatedAlerts"`
	Title             string            `json:"title"`
	State             string            `json:"state"`
	Message           string            `json:"message"`
}

// GrafanaAlert Grafana 单条告警
type GrafanaAlert struct {
	Status       string            `json:"status"`
	Labels       map[string]string `json:"labels"`
	Annotations  map[string]string `json:"annotations"`
	StartsAt     string            `json:"startsAt"`
	EndsAt       string            `json:"endsAt"`
	GeneratorURL string            `json:"generatorURL"`
	Fingerprint  string            `json:"fingerprint"`
	DashboardURL string            `json:"dashboardURL"`
	PanelURL     string            `json:"panelURL"`
	ValueString  string            `json:"valueString"`
}

// handleGrafanaWebhook 把 Grafana 告警转成日志事件并分发
// 告警源走与常规日志相同的扇出路径，观看者可以按 service/level 过滤
func (s *Server) handleGrafanaWebhook(c *gin.Context) {
	var payload GrafanaPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid grafana payload"})
		return
	}

	events := payload.ToEvents()
	for _, ev := range events {
		s.publish(ev)
	}
	c.JSON(http.StatusAccepted, gin.H{"accepted": len(events)})
}

// ToEvents 把告警列表转成日志事件
func (p *GrafanaPayload) ToEvents() []*stream.Event {
	events := make([]*stream.Event, 0, len(p.Alerts))
	for i := range p.Alerts {
		events = append(events, p.Alerts[i].toEvent())
	}
	return events
}

// toEvent 单条告警的事件表示
func (a *GrafanaAlert) toEvent() *stream.Event {
	fields := map[string]any{
		"source": "grafana",
		"status": a.Status,
	}
	if a.Fingerprint != "" {
		fields["fingerprint"] = a.Fingerprint
	}
	if url := a.dashboardURL(); url != "" {
		fields["dashboard_url"] = url
	}
	if a.ValueString != "" {
		fields["values"] = a.ValueString
	}
	for k, v := range a.Labels {
		if k != "alertname" && k != "service" && k != "severity" && k != "__name__" {
			fields["label_"+k] = v
		}
	}

	return &stream.Event{
		Level:     a.level(),
		Service:   a.service(),
		Message:   a.summary(),
		Timestamp: a.timestamp(),
		Fields:    fields,
	}
}

// level 映射到日志等级
// firing 优先看 severity 标签，resolved 固定为 info
func (a *GrafanaAlert) level() string {
	if a.Status == "resolved" {
		return "info"
	}
	switch a.Labels["severity"] {
	case "critical":
		return "error"
	case "warning":
		return "warn"
	case "info":
		return "info"
	default:
		return "error"
	}
}

// service 从标签中提取服务名
func (a *GrafanaAlert) service() string {
	for _, key := range []string{"service", "job", "instance", "alertname"} {
		if v, ok := a.Labels[key]; ok && v != "" {
			return v
		}
	}
	return "grafana"
}

// summary 提取告警摘要
func (a *GrafanaAlert) summary() string {
	for _, key := range []string{"summary", "description", "message"} {
		if v, ok := a.Annotations[key]; ok && v != "" {
			return v
		}
	}
	if v, ok := a.Labels["alertname"]; ok && v != "" {
		return v
	}
	return "alert " + a.Status
}

// dashboardURL 选择最具体的跳转链接
func (a *GrafanaAlert) dashboardURL() string {
	if a.DashboardURL != "" {
		return a.DashboardURL
	}
	if a.PanelURL != "" {
		return a.PanelURL
	}
	return a.GeneratorURL
}

// timestamp 解析告警触发时间，解析失败留给摄入层补当前时间
func (a *GrafanaAlert) timestamp() int64 {
	if a.StartsAt == "" {
		return 0
	}
	for _, format := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(format, a.StartsAt); err == nil {
			return t.UnixMilli()
		}
	}
	return 0
}
