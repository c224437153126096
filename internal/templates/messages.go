// Package templates holds every user-facing message of the bot. Handlers
// build text exclusively through this package so wording stays in one place.
package templates

import (
	"fmt"
	"strings"
	"time"

	"github.com/studgram/studgram-bot/internal/schedule"
)

const (
	Welcome = "Добро пожаловать в StudGram! 📚\n\nДля регистрации укажите ваши данные.\n\nВведите ваше ФИО:"

	RestartRegistration = "🔄 Начинаем регистрацию заново. Введите ваше ФИО:"

	ChooseUniversity = "🎓 Выберите ваш вуз (показаны сокращения):"

	AccessRestricted = `❌ Доступ ограничен

Эта функция доступна только после подтверждения вашей заявки администрацией учебного заведения.

Используйте команду «Мой статус» для проверки текущего статуса заявки.`

	StudentNotFound = `❌ Ошибка: ваш профиль не найден в системе StudGram

Возможные причины:
• Ваши данные были удалены из системы
• Произошла ошибка при регистрации
• Изменилась структура учебного заведения

Для восстановления доступа необходимо пройти регистрацию заново.

Не волнуйтесь! Это займет всего несколько минут.`

	StatusApproved = `✅ Ваша заявка подтверждена!

Теперь у вас есть полный доступ ко всем функциям StudGram:
• 📚 Просмотр расписания
• 📝 Отслеживание заданий
• 🤖 Общение с AI-ассистентом
• 🏫 Информация о ВУЗе

Для начала работы выберите нужный раздел в главном меню.`

	StatusPending = `⏳ Ваша заявка на рассмотрении

Администрация учебного заведения проверяет ваши данные.
Обычно это занимает от 1 до 3 рабочих дней.

Что сейчас доступно:
• Просмотр профиля и статуса заявки
• Основная информация о платформе

Что будет доступно после подтверждения:
• Полное расписание занятий
• Все учебные задания
• AI-ассистент для помощи в учебе
• Информация о ВУЗе и факультете

Пожалуйста, проверяйте статус позже.`

	ScheduleMenu = "📚 Выберите расписание:"

	ChatWelcome = `🤖 Чат-бот StudGram AI

Я здесь, чтобы помочь вам с учебными вопросами! Можете спросить меня о:
• Расписании занятий
• Домашних заданиях
• Учебных материалах
• Подготовке к экзаменам
• И любых других учебных вопросах

Просто напишите ваш вопрос, и я постараюсь помочь!

Для выхода из режима чата отправьте /menu`

	ChatExit = "✅ Вы вышли из режима чат-бота. Чтобы продолжить общение, нажмите кнопку ниже или выберите 'Чат-бот' в меню."

	ChatEmptyMessage = "🤖 AI-ассистент:\n\nВы отправили пустое сообщение. Пожалуйста, напишите ваш вопрос или запрос."

	ChatProcessing = "⏳ AI-ассистент обрабатывает запрос..."

	ChatError = "❌ Произошла ошибка при обращении к AI. Попробуйте позже."

	UniversityInfo = `Информация о вузе и платформе

Контакты администрации для обращений:
• Email: admin@studgram.ru
• Телефон: +7 (495) 123-45-67

Ссылки на внутренние порталы:
• Официальный сайт: https://studgram.ru
• Личный кабинет: https://lk.studgram.ru
• Образовательная платформа: https://edu.studgram.ru

Инструкции по использованию StudGram:
• Для доступа ко всем функциям необходимо подтверждение профиля
• Расписание обновляется автоматически
• Уведомления о заданиях приходят за 24 часа до дедлайна
• Уведомления о занятиях приходят за 2 часа до начала`

	NoUniversities       = "❌ Не удалось загрузить список учебных заведений. Попробуйте позже."
	UniversityNotFound   = "❌ Не удалось найти информацию о выбранном вузе"
	FacultiesUnavailable = "❌ Произошла ошибка при загрузке списка факультетов"
	GroupsUnavailable    = "❌ Произошла ошибка при загрузке списка групп"
	NoPendingData        = "❌ Ошибка: данные регистрации не найдены"
	BadDateFormat        = "❌ Неверный формат даты. Пожалуйста, введите дату в формате ДД.ММ.ГГГГ (например, 15.12.2024)"
	DateOutsideMonth     = "❌ Выбранная дата не принадлежит текущему месяцу. Используйте навигацию для перехода к нужному месяцу."
	ScheduleUnavailable  = "Расписание временно недоступно. Повторите попытку позже."
	CalendarUnavailable  = "Календарь временно недоступен. Повторите попытку позже."
	NoSubjects           = "📚 На данный момент у вас нет активных дисциплин."
	SubjectsUnavailable  = "❌ Не удалось загрузить список дисциплин. Попробуйте позже."
	ActionFailed         = "❌ Произошла ошибка при обработке команды. Попробуйте позже."
	UnknownCommand       = "Я не понял команду. Выберите действие в меню ниже."
)

// ChooseFaculty prompts for a faculty after the given university was picked.
func ChooseFaculty(university string) string {
	return fmt.Sprintf("🎓 Вуз: %s\n📚 Выберите ваш факультет (показаны сокращения):", university)
}

// ChooseGroup prompts for a group. Faculty may be empty when the institution
// has no faculty level.
func ChooseGroup(university, faculty string) string {
	facultyText := ""
	if faculty != "" {
		facultyText = fmt.Sprintf("\n📚 Факультет: %s", faculty)
	}
	return fmt.Sprintf("🎓 Вуз: %s%s\n👥 Выберите вашу группу:", university, facultyText)
}

// Confirmation renders the wizard recap before the final yes/no step.
func Confirmation(fullName, university, faculty, group string) string {
	var b strings.Builder
	b.WriteString("📋 Проверьте введенные данные:\n\n")
	fmt.Fprintf(&b, "📝 ФИО: %s\n", fullName)
	fmt.Fprintf(&b, "🎓 Вуз: %s\n", university)
	if faculty != "" {
		fmt.Fprintf(&b, "📚 Факультет: %s\n", faculty)
	}
	fmt.Fprintf(&b, "👥 Группа: %s\n", group)
	b.WriteString("\nВсе верно?")
	return b.String()
}

// RegistrationDone renders the completion message. When the backend sync
// failed the local record still exists and the user is told to contact an
// administrator.
func RegistrationDone(faculty string, synced bool) string {
	facultyText := ""
	if faculty != "" {
		facultyText = fmt.Sprintf("\n📚 Факультет: %s", faculty)
	}
	text := fmt.Sprintf(`✅ Регистрация завершена!%s

Ваши данные отправлены на проверку администрации учебного заведения.

Что сейчас происходит:
• Администратор проверяет ваше соответствие группе
• Обычно это занимает 1-3 рабочих дня
• Вы получите уведомление о результате

Что доступно сейчас:
• 📊 Проверка статуса заявки
• 👤 Просмотр вашего профиля

Используйте команду «Мой статус» для отслеживания прогресса.`, facultyText)

	if synced {
		text += "\n\n🔗 Ваш профиль синхронизирован с системой StudGram"
	} else {
		text += "\n\n⚠️ Не удалось полностью синхронизировать с системой StudGram"
		text += "\n📞 Обратитесь к администратору для решения проблемы"
	}
	return text
}

// MainMenu renders the main menu text for an approved or pending user.
func MainMenu(approved bool) string {
	if !approved {
		return `Добро пожаловать в StudGram.

Доступные команды:
• Инфо
• Мой профиль`
	}
	return `Главное меню StudGram

Доступные команды:
• Расписание
• Задания
• О ВУЗе
• Мой профиль`
}

// Profile holds the fields shown on the profile screen.
type Profile struct {
	FullName     string
	University   string
	UniversityAb string
	Faculty      string
	FacultyAb    string
	Group        string
	GroupAb      string
	SystemID     string
	Approved     bool
	FromBackend  bool
}

// RenderProfile formats the profile screen. Backend-sourced fields show their
// abbreviations; locally stored fields are marked as such.
func RenderProfile(p Profile) string {
	var b strings.Builder
	if p.FromBackend {
		b.WriteString("👤 Ваш профиль (данные из системы StudGram)\n\n")
	} else {
		b.WriteString("👤 Ваш профиль (локальные данные)\n\n")
	}
	fmt.Fprintf(&b, "📝 ФИО: %s\n", p.FullName)
	fmt.Fprintf(&b, "🎓 Вуз: %s\n", p.University)
	if p.UniversityAb != "" {
		fmt.Fprintf(&b, "   Аббревиатура: %s\n", p.UniversityAb)
	}
	if p.Faculty != "" {
		fmt.Fprintf(&b, "📚 Факультет: %s\n", p.Faculty)
		if p.FacultyAb != "" {
			fmt.Fprintf(&b, "   Аббревиатура: %s\n", p.FacultyAb)
		}
	}
	fmt.Fprintf(&b, "👥 Группа: %s\n", p.Group)
	if p.GroupAb != "" {
		fmt.Fprintf(&b, "   Аббревиатура: %s\n", p.GroupAb)
	}
	if p.SystemID != "" {
		fmt.Fprintf(&b, "🔗 ID в системе: %s\n", p.SystemID)
	}
	if p.Approved {
		b.WriteString("📋 Статус заявки: ✅ подтверждена администратором")
	} else {
		b.WriteString("📋 Статус заявки: ⏳ на рассмотрении")
		b.WriteString("\n\n⏳ Ваш профиль отправлен на подтверждение модератору.")
		b.WriteString("\n📨 Вы получите уведомление после проверки.")
	}
	return b.String()
}

// WeekendDate tells the user the picked date has no lessons.
func WeekendDate(date time.Time) string {
	return fmt.Sprintf("❌ %s - выходной день. Расписания нет.", date.Format("02.01.2006"))
}

// ChatReply wraps an assistant answer with the chat-mode header.
func ChatReply(answer string) string {
	return "🤖 AI-ассистент:\n\n" + answer
}

var monthNames = []string{
	"Январь", "Февраль", "Март", "Апрель", "Май", "Июнь",
	"Июль", "Август", "Сентябрь", "Октябрь", "Ноябрь", "Декабрь",
}

var dayNames = []string{
	"Понедельник", "Вторник", "Среда", "Четверг", "Пятница", "Суббота", "Воскресенье",
}

// RenderCalendar formats a month grid with study, weekend, and today markers.
func RenderCalendar(days []schedule.Day, year int, month time.Month) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🗓️ Календарь на %s %d года:\n\n", monthNames[month-1], year)
	b.WriteString("Пн Вт Ср Чт Пт Сб Вс\n")

	if len(days) > 0 {
		b.WriteString(strings.Repeat("   ", days[0].Weekday))
	}
	for _, d := range days {
		switch {
		case d.Today:
			fmt.Fprintf(&b, "[%2d] ", d.Number)
		case d.Study:
			fmt.Fprintf(&b, " %2d  ", d.Number)
		default:
			fmt.Fprintf(&b, "(%2d) ", d.Number)
		}
		if d.Weekday == 6 {
			b.WriteString("\n")
		}
	}

	b.WriteString("\n\n📝 Обозначения:")
	b.WriteString("\n• 12  - учебный день")
	b.WriteString("\n• (12) - выходной день")
	b.WriteString("\n• [12] - сегодняшний день")
	b.WriteString("\n\nВыберите действие:")
	b.WriteString("\n• Введите дату в формате ДД.ММ.ГГГГ (например, 15.12.2024)")
	b.WriteString("\n• 'Предыдущий месяц' - перейти к предыдущему месяцу")
	b.WriteString("\n• 'Следующий месяц' - перейти к следующему месяцу")
	b.WriteString("\n• 'Сегодня' - выбрать сегодняшнюю дату")
	b.WriteString("\n• 'Назад' - вернуться в главное меню")
	return b.String()
}

// RenderSchedule formats the lesson list for one date.
func RenderSchedule(lessons []schedule.Lesson, date time.Time) string {
	dayName := dayNames[(int(date.Weekday())+6)%7]
	var b strings.Builder
	fmt.Fprintf(&b, "📚 Расписание на %s (%s):\n\n", date.Format("02.01.2006"), dayName)

	if len(lessons) == 0 {
		b.WriteString("🎉 Пар нет! Отличный день для отдыха или самообразования.")
	} else {
		for i, lesson := range lessons {
			fmt.Fprintf(&b, "%d. %s\n", i+1, lesson.Subject)
			fmt.Fprintf(&b, "   👨‍🏫 Преподаватель: %s\n", lesson.Teacher)
			fmt.Fprintf(&b, "   ⏰ Время: %s\n", lesson.Time)
			fmt.Fprintf(&b, "   🏫 Аудитория: %s\n", lesson.Room)
			if lesson.OnlineLink != "" {
				fmt.Fprintf(&b, "   🔗 Ссылка: %s\n", lesson.OnlineLink)
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\nНавигация:")
	b.WriteString("\n• 'Календарь' - вернуться к выбору даты")
	b.WriteString("\n• 'Назад' - вернуться в главное меню")
	return b.String()
}

// SubjectEntry pairs a subject title with its optional content preview.
type SubjectEntry struct {
	Title        string
	Abbreviation string
	Content      string
}

const subjectContentLimit = 300

// RenderSubjects formats the discipline list with content previews.
func RenderSubjects(entries []SubjectEntry) string {
	if len(entries) == 0 {
		return NoSubjects
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📚 Ваши дисциплины и задания (%d):\n\n", len(entries))
	for i, e := range entries {
		title := e.Title
		if title == "" {
			title = "Без названия"
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, title)
		if e.Abbreviation != "" {
			fmt.Fprintf(&b, "Сокр.: %s\n", e.Abbreviation)
		}
		content := e.Content
		if content == "" {
			content = "Информация отсутствует"
		} else if len([]rune(content)) > subjectContentLimit {
			content = string([]rune(content)[:subjectContentLimit]) + "..."
		}
		fmt.Fprintf(&b, "Содержание: %s\n", content)
		b.WriteString(strings.Repeat("─", 20) + "\n\n")
	}
	b.WriteString("💡 Для получения дополнительной информации используйте веб-интерфейс StudGram\n\n")
	b.WriteString("🔄 Обновить - обновить список дисциплин\n")
	b.WriteString("🔙 Назад - вернуться в главное меню")
	return b.String()
}

// Name validation errors shown to the user during the full-name step.
const (
	NameTooFewParts  = "Введите полное ФИО (Имя и Фамилия)"
	NameTooManyParts = "Слишком много слов в ФИО"
	NameNotAlpha     = "ФИО должно содержать только буквы"
	NameTooShort     = "ФИО слишком короткое"
)
