package sandbox

import (
	"fmt"
	"regexp"
	"strings"
	"travelchat/app/model"
)

// exclusionPattern captures what follows a refusal phrase.
var exclusionPattern = regexp.MustCompile(`(?i)(?:не\s+хочу(?:\s+(?:в|у|на|до|бачити|відвідувати))?|не\s+показуй|don['’]t\s+want(?:\s+to\s+(?:go\s+to|visit|see))?|do\s+not\s+want(?:\s+to\s+(?:go\s+to|visit|see))?|no\s+quiero(?:\s+(?:ir\s+a|visitar|ver))?|je\s+ne\s+veux\s+pas(?:\s+(?:aller\s+à|visiter|voir))?)\s+(.+)`)

var (
	clauseSeparator      = regexp.MustCompile(`[,.;:!?\n]+`)
	conjunctionSeparator = regexp.MustCompile(`(?i)\s+(?:і|й|та|и|and|or|y|et|ou)\s+`)
)

const maxFillAttempts = 1000

var fillers = []string{"Вільна прогулянка", "Міський парк", "Місцева кав'ярня", "Оглядовий майданчик"}

type city struct {
	keys   []string
	places []model.Place
}

var catalogue = []city{
	{
		keys: []string{"рим", "rome", "roma"},
		places: []model.Place{
			{Name: "Колізей", Description: "Амфітеатр Флавіїв, символ стародавнього Риму", Coords: model.Coords{Lat: 41.8902, Lng: 12.4922}},
			{Name: "Римський форум", Description: "Серце політичного життя античного міста", Coords: model.Coords{Lat: 41.8925, Lng: 12.4853}},
			{Name: "Пантеон", Description: "Храм усіх богів з найбільшим неармованим куполом", Coords: model.Coords{Lat: 41.8986, Lng: 12.4769}},
			{Name: "Ватикан", Description: "Собор Святого Петра та Сикстинська капела", Coords: model.Coords{Lat: 41.9029, Lng: 12.4534}},
			{Name: "Фонтан Треві", Description: "Бароковий фонтан, куди кидають монетки", Coords: model.Coords{Lat: 41.9009, Lng: 12.4833}},
			{Name: "Палатин", Description: "Пагорб з руїнами імператорських палаців", Coords: model.Coords{Lat: 41.8894, Lng: 12.4875}},
			{Name: "Замок Святого Ангела", Description: "Мавзолей Адріана з видом на Тибр", Coords: model.Coords{Lat: 41.9031, Lng: 12.4663}},
		},
	},
	{
		keys: []string{"париж", "paris"},
		places: []model.Place{
			{Name: "Ейфелева вежа", Description: "Оглядові майданчики над Марсовим полем", Coords: model.Coords{Lat: 48.8584, Lng: 2.2945}},
			{Name: "Лувр", Description: "Один з найбільших художніх музеїв світу", Coords: model.Coords{Lat: 48.8606, Lng: 2.3376}},
			{Name: "Нотр-Дам", Description: "Готичний собор на острові Сіте", Coords: model.Coords{Lat: 48.8530, Lng: 2.3499}},
			{Name: "Монмартр", Description: "Пагорб художників і базиліка Сакре-Кер", Coords: model.Coords{Lat: 48.8867, Lng: 2.3431}},
			{Name: "Тріумфальна арка", Description: "Пам'ятник на площі Шарля де Голля", Coords: model.Coords{Lat: 48.8738, Lng: 2.2950}},
			{Name: "Музей Орсе", Description: "Імпресіоністи в будівлі колишнього вокзалу", Coords: model.Coords{Lat: 48.8600, Lng: 2.3266}},
		},
	},
	{
		keys: []string{"київ", "києв", "киев", "kyiv", "kiev"},
		places: []model.Place{
			{Name: "Києво-Печерська лавра", Description: "Печерний монастир над Дніпром", Coords: model.Coords{Lat: 50.4346, Lng: 30.5573}},
			{Name: "Софійський собор", Description: "Мозаїки та фрески XI століття", Coords: model.Coords{Lat: 50.4529, Lng: 30.5143}},
			{Name: "Андріївський узвіз", Description: "Стара вулиця між Верхнім містом і Подолом", Coords: model.Coords{Lat: 50.4590, Lng: 30.5170}},
			{Name: "Золоті ворота", Description: "Реконструкція давньої міської брами", Coords: model.Coords{Lat: 50.4488, Lng: 30.5131}},
			{Name: "Майдан Незалежності", Description: "Головна площа міста", Coords: model.Coords{Lat: 50.4501, Lng: 30.5234}},
			{Name: "Батьківщина-мати", Description: "Монумент і музей історії України", Coords: model.Coords{Lat: 50.4265, Lng: 30.5630}},
		},
	},
	{
		keys: []string{"львів", "львов", "lviv"},
		places: []model.Place{
			{Name: "Площа Ринок", Description: "Ратуша та кам'яниці середмістя", Coords: model.Coords{Lat: 49.8419, Lng: 24.0316}},
			{Name: "Високий замок", Description: "Найвища точка з панорамою міста", Coords: model.Coords{Lat: 49.8484, Lng: 24.0395}},
			{Name: "Львівська опера", Description: "Театр опери та балету на проспекті Свободи", Coords: model.Coords{Lat: 49.8440, Lng: 24.0262}},
			{Name: "Личаківський цвинтар", Description: "Музей-некрополь з XVIII століття", Coords: model.Coords{Lat: 49.8338, Lng: 24.0560}},
			{Name: "Вірменський собор", Description: "Найстаріший діючий храм міста", Coords: model.Coords{Lat: 49.8435, Lng: 24.0297}},
		},
	},
}

var fallbackCity = city{
	places: []model.Place{
		{Name: "Акрополь", Description: "Парфенон над Афінами", Coords: model.Coords{Lat: 37.9715, Lng: 23.7257}},
		{Name: "Саграда Фамілія", Description: "Недобудований храм Гауді в Барселоні", Coords: model.Coords{Lat: 41.4036, Lng: 2.1744}},
		{Name: "Карлів міст", Description: "Готичний міст через Влтаву у Празі", Coords: model.Coords{Lat: 50.0865, Lng: 14.4114}},
		{Name: "Бранденбурзькі ворота", Description: "Символ об'єднаного Берліна", Coords: model.Coords{Lat: 52.5163, Lng: 13.3777}},
		{Name: "Рейксмузеум", Description: "Голландські майстри в Амстердамі", Coords: model.Coords{Lat: 52.3600, Lng: 4.8852}},
	},
}

// extractExclusions returns the places a request asks to leave out, in order of mention.
// "не хочу в Колізей і Ватикан" yields both names: a refusal carries over the
// conjunctions of its clause but not past punctuation.
func extractExclusions(text string) []string {
	var result []string

	for _, clause := range clauseSeparator.Split(text, -1) {
		refusing := false
		for _, part := range conjunctionSeparator.Split(clause, -1) {
			part = strings.TrimSpace(part)
			if match := exclusionPattern.FindStringSubmatch(part); match != nil {
				part = strings.TrimSpace(match[1])
				refusing = true
			} else if !refusing {
				continue
			}

			if part != "" {
				result = append(result, part)
			}
		}
	}

	return result
}

// accumulate merges exclusions of earlier requests with new ones, keeping the first occurrence.
func accumulate(recent []model.Recommendation, fresh []string) []string {
	seen := make(map[string]struct{})
	result := []string{}

	add := func(items []string) {
		for _, item := range items {
			if _, ok := seen[item]; ok {
				continue
			}
			seen[item] = struct{}{}
			result = append(result, item)
		}
	}

	for _, rec := range recent {
		add(rec.Exclude)
	}
	add(fresh)

	return result
}

// suggest picks n places for the city named in text or, failing that, in the
// most recent request naming one. Excluded places are never suggested, so
// exclusions broad enough to match every filler yield fewer than n places.
func suggest(text string, recent []model.Recommendation, exclude []string, n int) []model.Place {
	target := fallbackCity
	if c, ok := findCity(text); ok {
		target = c
	} else {
		for _, rec := range recent {
			if c, ok := findCity(rec.Text); ok {
				target = c
				break
			}
		}
	}

	result := make([]model.Place, 0, n)
	for _, place := range target.places {
		if len(result) == n {
			break
		}
		if isExcluded(place.Name, exclude) {
			continue
		}
		result = append(result, place)
	}

	center := target.places[0].Coords
	for i := 1; len(result) < n && i <= maxFillAttempts; i++ {
		name := fmt.Sprintf("%s %d", fillers[i%len(fillers)], i)
		if isExcluded(name, exclude) {
			continue
		}
		result = append(result, model.Place{
			Name:        name,
			Description: "Маршрут на власний розсуд",
			Coords:      center,
		})
	}

	return result
}

func findCity(text string) (city, bool) {
	text = strings.ToLower(text)
	for _, c := range catalogue {
		for _, key := range c.keys {
			if strings.Contains(text, key) {
				return c, true
			}
		}
	}

	return city{}, false
}

func isExcluded(name string, exclude []string) bool {
	name = strings.ToLower(name)
	for _, item := range exclude {
		item = strings.ToLower(strings.TrimSpace(item))
		if item == "" {
			continue
		}
		if strings.Contains(name, item) || strings.Contains(item, name) {
			return true
		}
	}

	return false
}
