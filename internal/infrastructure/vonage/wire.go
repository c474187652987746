package vonage

import (
	"time"

	"relaycast/internal/core/domain"
)

type streamList struct {
	Count int          `json:"count"`
	Items []streamItem `json:"items"`
}

type streamItem struct {
	ID              string   `json:"id"`
	VideoType       string   `json:"videoType"`
	Name            string   `json:"name"`
	LayoutClassList []string `json:"layoutClassList"`
}

type classListRequest struct {
	Items []classListItem `json:"items"`
}

type classListItem struct {
	ID              string   `json:"id"`
	LayoutClassList []string `json:"layoutClassList"`
}

type layoutBody struct {
	Type            string `json:"type"`
	Stylesheet      string `json:"stylesheet,omitempty"`
	ScreenshareType string `json:"screenshareType,omitempty"`
}

type rtmpOutput struct {
	ID         string `json:"id,omitempty"`
	ServerURL  string `json:"serverUrl"`
	StreamName string `json:"streamName"`
	Status     string `json:"status,omitempty"`
}

type startBroadcastRequest struct {
	SessionID  string     `json:"sessionId"`
	Layout     layoutBody `json:"layout"`
	Outputs    outputs    `json:"outputs"`
	Resolution string     `json:"resolution,omitempty"`
}

type outputs struct {
	RTMP []rtmpOutput `json:"rtmp"`
}

type broadcastList struct {
	Count int             `json:"count"`
	Items []broadcastItem `json:"items"`
}

type broadcastItem struct {
	ID            string `json:"id"`
	SessionID     string `json:"sessionId"`
	Status        string `json:"status"`
	CreatedAt     int64  `json:"createdAt"`
	BroadcastURLs struct {
		RTMP []rtmpOutput `json:"rtmp"`
	} `json:"broadcastUrls"`
}

type signalRequest struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (s streamItem) toDomain() domain.Stream {
	classes := s.LayoutClassList
	if classes == nil {
		classes = []string{}
	}
	return domain.Stream{
		ID:              domain.StreamID(s.ID),
		Kind:            domain.NormalizeStreamKind(domain.StreamKind(s.VideoType)),
		Name:            s.Name,
		LayoutClassList: classes,
	}
}

func (b broadcastItem) toDomain() domain.Broadcast {
	destinations := make([]domain.RTMPDestination, 0, len(b.BroadcastURLs.RTMP))
	for _, out := range b.BroadcastURLs.RTMP {
		destinations = append(destinations, domain.RTMPDestination{
			ID:         out.ID,
			ServerURL:  out.ServerURL,
			StreamName: out.StreamName,
		})
	}

	var createdAt time.Time
	if b.CreatedAt > 0 {
		createdAt = time.UnixMilli(b.CreatedAt).UTC()
	}

	return domain.Broadcast{
		ID:           domain.BroadcastID(b.ID),
		SessionID:    domain.SessionID(b.SessionID),
		Status:       domain.BroadcastStatus(b.Status),
		Destinations: destinations,
		CreatedAt:    createdAt,
	}
}

func layoutFromAlgorithm(a domain.Algorithm) layoutBody {
	if a.Type == domain.AlgorithmCustom {
		return layoutBody{Type: string(domain.AlgorithmCustom), Stylesheet: a.Stylesheet}
	}
	return layoutBody{Type: string(domain.AlgorithmBestFit), ScreenshareType: a.ScreenShareType}
}
