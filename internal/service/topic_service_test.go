package service

import (
	"context"
	"errors"
	"testing"

	"github.com/postforge/autoposter/internal/models"
	"github.com/postforge/autoposter/internal/transfer"
)

func TestSelectTopicPrefersIdeas(t *testing.T) {
	ideas := newFakeIdeaRepo()
	series := newFakeSeriesRepo()
	series.add(&models.Series{UserID: 1, Title: "Go in prod", TopicQueue: []models.SeriesTopic{{Title: "queued topic"}}})
	ideas.add(&models.Idea{UserID: 1, Text: "hot take"})

	svc := NewTopicService(ideas, series)
	selection, err := svc.SelectTopic(context.Background(), 1, nil)
	if err != nil {
		t.Fatalf("SelectTopic: %v", err)
	}
	if selection.Topic != "hot take" || selection.Source != transfer.TopicSourceIdea {
		t.Fatalf("selection = %+v, want the idea", selection)
	}

	used, _ := ideas.ListByUserID(context.Background(), 1, false)
	if len(used) != 0 {
		t.Fatal("selected idea should be marked used")
	}
}

func TestSelectTopicIdeaCarriesSeriesContext(t *testing.T) {
	ideas := newFakeIdeaRepo()
	series := newFakeSeriesRepo()
	sid := series.add(&models.Series{UserID: 1, Title: "Launch diary"})
	ideas.add(&models.Idea{UserID: 1, Text: "behind the scenes", SeriesID: &sid})

	svc := NewTopicService(ideas, series)
	selection, err := svc.SelectTopic(context.Background(), 1, nil)
	if err != nil {
		t.Fatalf("SelectTopic: %v", err)
	}
	if selection.SeriesID == nil || *selection.SeriesID != sid || selection.SeriesTitle != "Launch diary" {
		t.Fatalf("selection = %+v, want series context attached", selection)
	}
	if selection.TopicIndex != nil {
		t.Fatal("idea selection should not carry a queue index")
	}
}

func TestSelectTopicRetriesLostIdea(t *testing.T) {
	ideas := newFakeIdeaRepo()
	series := newFakeSeriesRepo()
	ideas.add(&models.Idea{UserID: 1, Text: "first"})
	ideas.add(&models.Idea{UserID: 1, Text: "second"})
	ideas.raceOnce = true // concurrent sweep wins the first idea

	svc := NewTopicService(ideas, series)
	selection, err := svc.SelectTopic(context.Background(), 1, nil)
	if err != nil {
		t.Fatalf("SelectTopic: %v", err)
	}
	if selection.Topic != "second" {
		t.Fatalf("selection = %q, want fallthrough to second idea", selection.Topic)
	}
}

func TestSelectTopicFallsBackToSeries(t *testing.T) {
	ideas := newFakeIdeaRepo()
	series := newFakeSeriesRepo()
	sid := series.add(&models.Series{
		UserID:       1,
		Title:        "Scaling notes",
		TopicQueue:   []models.SeriesTopic{{Title: "part one"}, {Title: "part two", Notes: "follow up"}},
		CurrentIndex: 1,
	})

	svc := NewTopicService(ideas, series)
	selection, err := svc.SelectTopic(context.Background(), 1, nil)
	if err != nil {
		t.Fatalf("SelectTopic: %v", err)
	}
	if selection.Topic != "part two" || selection.Notes != "follow up" || selection.Source != transfer.TopicSourceSeries {
		t.Fatalf("selection = %+v, want queue position 1", selection)
	}
	if selection.TopicIndex == nil || *selection.TopicIndex != 1 {
		t.Fatalf("TopicIndex = %v, want 1", selection.TopicIndex)
	}

	// Selection must not consume the queue; that happens on publish.
	if got := series.get(sid).CurrentIndex; got != 1 {
		t.Fatalf("CurrentIndex = %d, selection should not advance the series", got)
	}
}

func TestSelectTopicExplicitSeries(t *testing.T) {
	ideas := newFakeIdeaRepo()
	series := newFakeSeriesRepo()
	sid := series.add(&models.Series{UserID: 1, Title: "Mine", TopicQueue: []models.SeriesTopic{{Title: "one"}}})
	other := series.add(&models.Series{UserID: 2, Title: "Theirs", TopicQueue: []models.SeriesTopic{{Title: "two"}}})

	svc := NewTopicService(ideas, series)
	selection, err := svc.SelectTopic(context.Background(), 1, &sid)
	if err != nil {
		t.Fatalf("SelectTopic: %v", err)
	}
	if selection.SeriesID == nil || *selection.SeriesID != sid {
		t.Fatalf("selection = %+v, want explicit series", selection)
	}

	if _, err := svc.SelectTopic(context.Background(), 1, &other); err == nil {
		t.Fatal("selecting another user's series should fail")
	}
}

func TestSelectTopicNothingLeft(t *testing.T) {
	ideas := newFakeIdeaRepo()
	series := newFakeSeriesRepo()
	series.add(&models.Series{
		UserID:       1,
		Title:        "Done",
		TopicQueue:   []models.SeriesTopic{{Title: "only"}},
		CurrentIndex: 1,
	})

	svc := NewTopicService(ideas, series)
	if _, err := svc.SelectTopic(context.Background(), 1, nil); !errors.Is(err, ErrNoTopic) {
		t.Fatalf("err = %v, want ErrNoTopic", err)
	}
}
