package models

func intp(v int) *int { return &v }

// FakeRecordResponse returns a canned transcription result for the fake
// query mode and for tests.
func FakeRecordResponse() RecordResponse {
	return RecordResponse{
		ID:       12345678,
		Duration: 45 * 60,
		Topic:    "布尔代数",
		Abstract: "布尔代数是数学的一个分支，它研究的是命题的真值表。",
		RawRecognition: []TranscriptSegment{
			{Start: 0, End: intp(12), Text: "什么是布尔值？"},
			{Start: 13, End: intp(25), Text: "布尔值有什么用？"},
			{Start: 26, End: intp(30), Text: "布尔值有哪两种？"},
			{Start: 31, End: intp(40), Text: "什么是命题真值？"},
			{Start: 41, End: intp(50), Text: "什么是真值表？"},
			{Start: 51, End: intp(60), Text: "真值表有什么用？"},
		},
	}
}

// FakeNoteResponse returns a canned structured note.
func FakeNoteResponse() NoteResponse {
	wiki := func(name, href string) Link { return Link{Name: name, Href: href} }
	return NoteResponse{
		Points: []Point{
			{
				Name:       "布尔值",
				Importance: 2,
				Summary:    "布尔值是逻辑中的基本概念，它只有两个取值：真和假。",
				Links: []Link{
					wiki("维基百科", "https://zh.wikipedia.org/wiki/%E5%B8%83%E5%B0%94%E5%80%BC"),
					wiki("百度百科", "https://baike.baidu.com/item/%E5%B8%83%E5%B0%94%E5%80%BC"),
				},
				Subtitles: []Subtitle{
					{
						Subtitle: "布尔值的定义",
						MD:       "**布尔值**是逻辑中的基本概念，它只有两个取值：真和假。",
						RawRecognition: []TranscriptSegment{
							{Start: 0, End: intp(12), Text: "什么是布尔值？"},
							{Start: 13, End: intp(25), Text: "布尔值有什么用？"},
						},
					},
					{
						Subtitle: "布尔值的类型",
						MD:       "布尔值有两种类型：命题真值和命题真值表。",
						RawRecognition: []TranscriptSegment{
							{Start: 26, End: intp(30), Text: "布尔值有哪两种？"},
							{Start: 31, End: intp(40), Text: "什么是命题真值？"},
						},
					},
				},
			},
			{
				Name:       "真值表",
				Importance: 3,
				Summary:    "真值表是指命题的真值对所有可能的取值组合的一种表示。",
				Links: []Link{
					wiki("维基百科", "https://zh.wikipedia.org/wiki/%E7%9C%9F%E5%80%BC%E8%A1%A8"),
					wiki("百度百科", "https://baike.baidu.com/item/%E7%9C%9F%E5%80%BC%E8%A1%A8"),
				},
				Subtitles: []Subtitle{
					{
						Subtitle: "真值表的定义",
						MD:       "**真值表**是指命题的真值对所有可能的取值组合的一种表示。",
						RawRecognition: []TranscriptSegment{
							{Start: 41, End: intp(50), Text: "什么是真值表？"},
							{Start: 51, End: intp(60), Text: "真值表有什么用？"},
						},
					},
				},
			},
		},
	}
}

// FakeNetworkResponse returns a canned knowledge graph.
func FakeNetworkResponse() NetworkResponse {
	return NetworkResponse{
		Nodes: []Node{
			{Name: "布尔代数", Category: 0, Size: 5, Route: NoteRoute{ID: 12345678}},
			{Name: "布尔值", Category: 0, Size: 2, Route: NoteRoute{ID: 12345678, Point: "布尔值"}},
			{Name: "真值表", Category: 0, Size: 3, Route: NoteRoute{ID: 12345678, Point: "真值表"}},
			{Name: "离散数学", Category: 1, Size: 4, Route: NoteRoute{ID: 12345679}},
			{Name: "命题逻辑", Category: 1, Size: 1, Route: NoteRoute{ID: 12345679, Point: "命题逻辑"}},
		},
		Links: []NodeLink{
			{Source: "布尔代数", Target: "真值表", Weight: 1},
			{Source: "布尔代数", Target: "布尔值", Weight: 2},
			{Source: "真值表", Target: "命题逻辑", Weight: 1},
			{Source: "离散数学", Target: "命题逻辑", Weight: 4},
		},
		Categories: []NodeCategory{
			{Idx: 0, Name: "布尔代数"},
			{Idx: 1, Name: "离散数学"},
		},
	}
}
