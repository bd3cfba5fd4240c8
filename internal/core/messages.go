package core

// User-facing texts. The bot speaks Russian.
const (
	MsgUnavailable       = "Извините, логика бота недоступна. Попробуйте позже."
	MsgRootNotFound      = "Ошибка в логике бота: корневая тема не найдена."
	MsgQuestionsNotFound = "Ошибка: вопросы не найдены."
	MsgSelectorNotFound  = "Ошибка: уровень ампутации не найден."
	MsgAlreadyAtTop      = "Вы уже в главном меню."
	MsgNavigationError   = "Ошибка навигации."
	MsgTopicNotFound     = "Ошибка: подтема не найдена."
	MsgUnknownTopic      = "Тема не найдена."
	MsgNoVideo           = "Видео для выбранного уровня ампутации отсутствует."
	MsgNoInfoFormat      = `По теме "%s" нет дополнительной информации.`
	MsgWatchVideoFormat  = "[Смотреть видео](%s)"
	MsgWelcomeCaption    = "*Вас приветствует информационный бот *[scoliologic.ru](https://scoliologic.ru)*.*"

	PromptChooseLimb        = "Выберите конечность:"
	PromptChooseTopic       = "Выберите тему:"
	PromptChooseLevel       = "Выберите уровень ампутации:"
	PromptChooseQuestion    = "Выберите интересующий Вас вопрос:"
	PromptChooseSubcategory = "Выберите подкатегорию:"

	BtnBack            = "⬅️ Назад"
	BtnBackToQuestions = "🔙 Вернуться к вопросам"
)

// Admin panel texts.
const (
	MsgNotAdmin        = "Нет прав администратора."
	MsgSaveFailed      = "❌ Ошибка при сохранении изменений."
	MsgCreateFailed    = "❌ Ошибка при сохранении подтемы."
	MsgTopicListAbsent = "Не найден список подтем."
	MsgStaleAction     = "Это действие устарело. Откройте /admin заново."
	MsgUseButtons      = "Пожалуйста, используйте кнопки меню."
	MsgSendVideoFile   = "Пожалуйста, отправьте видеофайл."
	MsgSendText        = "Пожалуйста, отправьте текстовое сообщение."
	MsgCancelled       = "Действие отменено."
	MsgNotDeletable    = "Эту тему нельзя удалить."
	MsgEmptyTitle      = "Название не может быть пустым. Введите название новой подтемы:"
	MsgInvalidURL      = "Ссылка должна начинаться с http:// или https://. Введите ссылку ещё раз:"

	AdminMenuPrompt = "Что вы хотите сделать?"

	BtnViewStructure  = "📋 Просмотреть структуру"
	BtnEditVideo      = "🎬 Добавить/заменить видео в существующей теме"
	BtnNewSubtopic    = "➕ Создать новую подтему"
	BtnDeleteSubtopic = "🗑 Удалить подтему"
	BtnMainMenu       = "🏠 Главное меню"
	BtnCancel         = "❌ Отмена"

	PromptEditLimb       = "Для какой конечности?"
	PromptCreateLimb     = "Для какой конечности добавить подтему?"
	PromptDeleteLimb     = "Из какой конечности удалить подтему?"
	PromptChooseSubtopic = "Выберите подтему:"
	PromptMoreSpecific   = "Выберите более конкретную подтему:"
	PromptChooseParent   = "Выберите родительскую подтему для новой темы:"
	PromptDeletePick     = "Выберите подтему для удаления:"
	PromptEnterTitle     = "Введите название новой подтемы:"
	PromptUploadFile     = "Отправьте видеофайл:"
	PromptEnterURL       = "Введите ссылку на видео:"
	PromptDescription    = `Введите описание для этого уровня (или "-" чтобы убрать описание):`
	PromptNewDescription = `Введите описание для этого видео (или "-" чтобы пропустить):`
	PromptConfirmDelete  = "Удалить эту тему?"

	BtnUploadFile      = "📤 Загрузить файл"
	BtnEnterURL        = "🔗 Ввести ссылку"
	BtnEditDescription = "📝 Изменить описание"
	BtnDeleteContent   = "🗑 Удалить видео"
	BtnSkip            = "⏭️ Пропустить"
	BtnSkipDescription = "⏭️ Пропустить описание"
	BtnAddHere         = "📌 Добавить сюда"
	BtnDeleteWhole     = "🗑 Удалить всю тему «%s»"
	BtnConfirmDelete   = "✅ Да, удалить"

	MsgVideoUpdated       = "✅ Видео обновлено!"
	MsgDescriptionUpdated = "✅ Описание обновлено!"
	MsgDescriptionRemoved = "✅ Описание удалено."
	MsgContentDeleted     = "✅ Видео и описание для уровня удалены."
	MsgURLUnchanged       = "Изменения отменены, видео осталось прежним."
	MsgTopicCreated       = `✅ Подтема "%s" успешно добавлена!`
	MsgTopicDeleted       = `✅ Тема "%s" удалена.`
	MsgStructureHeader    = "📋 *Структура тем:*"
)
