package generation

import "chaptercraft-api/internal/domain/entity"

// 模板块库：扩写器使用的静态文本素材，与选择逻辑（expander.go）分离。
// 块内占位符：%[1]s 为章节主题，%[2]s 为文档主题。

// narrativeChapterTopics 叙事类章节主题，按叙事弧线排序
var narrativeChapterTopics = []string{
	"Origins",
	"The Call",
	"Crossing the Threshold",
	"First Trials",
	"Allies and Adversaries",
	"The Descent",
	"Revelation",
	"The Turning Point",
	"The Price of Victory",
	"Resolution",
}

// informationalChapterTopics 说明类章节主题
var informationalChapterTopics = []string{
	"Introduction",
	"Getting Started",
	"Core Concepts",
	"Practical Techniques",
	"Common Pitfalls",
	"Advanced Strategies",
	"Case Studies",
	"Tools and Resources",
	"Putting It All Together",
	"Next Steps",
}

// shortFormChapterTopics 图文短篇章节主题
var shortFormChapterTopics = []string{
	"A Curious Morning",
	"An Unexpected Friend",
	"The Big Surprise",
	"A Lesson Learned",
	"Home Again",
}

// chapterTopicsFor 返回品类对应的章节主题列表
func chapterTopicsFor(category entity.ContentCategory) []string {
	switch category {
	case entity.CategoryInformational:
		return informationalChapterTopics
	case entity.CategoryIllustratedShortForm:
		return shortFormChapterTopics
	default:
		return narrativeChapterTopics
	}
}

// narrativeBlocks 叙事延续块，逐块追加直至补足字数缺口
var narrativeBlocks = []string{
	"The theme of %[1]s lingered over everything that followed. In the quiet moments between events, the people at the heart of %[2]s found themselves returning to what had happened, turning each detail over like a stone in the hand, searching its underside for meaning. Some details yielded their secrets quickly. Others resisted, and the resistance itself became part of the story, a reminder that nothing about this journey would be given away freely or explained all at once.",
	"Night settled, and with it came a kind of honesty that daylight never allowed. Conversations about %[1]s grew quieter and more direct. What had seemed certain in the morning now revealed its seams, and what had been dismissed as impossible began, cautiously, to look like a path forward. The world of %[2]s had a way of rearranging itself when no one was watching, and those who noticed the rearrangement earliest were the ones who endured.",
	"There were practical matters, too, the unglamorous machinery that keeps any undertaking alive. Supplies were counted and recounted. Plans were drawn, argued over, abandoned, and drawn again. Beneath the surface of %[1]s ran a current of ordinary effort, and it was this current, more than any single dramatic gesture, that carried %[2]s forward through the hours when courage faltered and the way ahead dissolved into fog.",
	"Memory is an unreliable companion, and each of them carried a different version of how %[1]s had begun. The versions disagreed on details and sometimes on essentials, yet in their disagreement they traced the outline of a shared truth. Whatever else could be said of %[2]s, it had changed the people inside it, and the change could be measured in the growing distance between who they had been and who they were now required to become.",
	"A lesser account would pass over what came next, but the slow middle of any journey deserves its record. Days accumulated. Small victories were logged against small defeats, and the ledger of %[1]s refused to balance neatly. Still there was movement, the stubborn incremental movement of people who had decided that %[2]s mattered enough to continue, and who renewed that decision each morning with less ceremony and more resolve than the morning before.",
}

// elaborationBlocks 主题阐释块，用于说明类内容
var elaborationBlocks = []string{
	"It is worth pausing to examine %[1]s in greater depth. Practitioners who engage with %[2]s consistently report that early assumptions rarely survive contact with real conditions. The prudent approach is to treat every initial estimate as provisional, to instrument the work so that deviations surface quickly, and to build in explicit checkpoints where the plan can be revised without penalty. This discipline costs little and repays itself many times over.",
	"A common objection deserves a direct answer here. Critics sometimes argue that the attention given to %[1]s is disproportionate to its practical impact. The record suggests otherwise. Across a wide range of situations connected to %[2]s, outcomes correlate strongly with how early and how seriously this aspect was considered. The cases that went badly share a pattern: the subject was postponed until it could no longer be ignored, by which point the available options had narrowed considerably.",
	"Consider the question from a different angle. %[1]s does not exist in isolation; it interacts with every other element of %[2]s, and those interactions produce effects that no component exhibits on its own. Mapping these relationships explicitly, even roughly, exposes dependencies that would otherwise remain invisible until they failed. A simple diagram kept current is worth more than an exhaustive specification kept stale.",
	"The historical context also rewards attention. Approaches to %[1]s have shifted substantially over time, and each shift encoded a lesson paid for in failure. Understanding why earlier methods were abandoned protects against rediscovering their defects. Those who study the evolution of %[2]s gain not only techniques but judgment: the ability to recognize which circumstances call for which tool, and which combinations have historically ended badly.",
	"Finally, the practical takeaway. Progress with %[1]s comes from small, verifiable steps taken in a deliberate order. Define what success looks like before starting. Measure honestly, including the results that disappoint. Share findings early so that errors are cheap. None of this is glamorous, but in the accumulated experience of %[2]s, the teams that follow this routine arrive sooner and in better condition than the teams that trust inspiration alone.",
}

// shortFormBlocks 短篇延续块，句式简单，面向图文短篇
var shortFormBlocks = []string{
	"And so the day went on. Everyone thought about %[1]s and smiled. There was still so much to discover in the world of %[2]s, and tomorrow would bring another chance to explore it together.",
	"The friends looked at one another and laughed. %[1]s had turned out to be quite an adventure. Wherever %[2]s led them next, they knew they would go there side by side.",
	"Outside, the sun was warm and the wind was gentle. It was a good day to think about %[1]s, and an even better day to be part of %[2]s. One by one, they set off down the path to see what was waiting around the bend.",
}

// expansionBlocksFor 返回品类对应的扩写块库
func expansionBlocksFor(category entity.ContentCategory) []string {
	switch category {
	case entity.CategoryInformational:
		return elaborationBlocks
	case entity.CategoryIllustratedShortForm:
		return shortFormBlocks
	default:
		return narrativeBlocks
	}
}
